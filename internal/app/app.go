package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"GeoGlobe/internal/config"
	"GeoGlobe/internal/httpapi"
	"GeoGlobe/internal/infrastructure/ollama"
	"GeoGlobe/internal/infrastructure/scheduler"
	"GeoGlobe/internal/infrastructure/scrape"
	"GeoGlobe/internal/infrastructure/storage"
	"GeoGlobe/internal/logging"
	"GeoGlobe/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	server    *http.Server
	scheduler *scheduler.TickerScheduler
	runner    *usecase.JobRunner
	refresher *usecase.Refresher
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	events := storage.NewEventRepository(db)
	rows := storage.NewRowRepository(db)
	states := storage.NewStateRepository(db)
	ledger := storage.NewJobLedger(db)
	relations := storage.NewRelationReader(db)

	extractClient := ollama.New(cfg.Ollama.Bin, cfg.Ollama.Model, cfg.Ollama.ExtractTimeout,
		baseLogger.With("component", "ollama.extract"))
	groundClient := ollama.New(cfg.Ollama.Bin, cfg.Ollama.Model, cfg.Ollama.GroundTimeout,
		baseLogger.With("component", "ollama.ground"))

	processor := usecase.NewProcessor(usecase.ProcessorDeps{
		Events:        events,
		Rows:          rows,
		States:        states,
		ExtractClient: extractClient,
		GroundClient:  groundClient,
		GroundRetries: cfg.Ollama.GroundRetries,
		Logger:        baseLogger.With("component", "processor"),
	})

	feeds := make([]scrape.Feed, 0, len(cfg.Ingestion.Feeds))
	for _, f := range cfg.Ingestion.Feeds {
		feeds = append(feeds, scrape.Feed{Name: f.Name, URL: f.URL, Lang: f.Lang})
	}
	source := scrape.NewFeedSource(nil, feeds)

	refresher := usecase.NewRefresher(source, events, baseLogger.With("component", "refresher"))
	runner := usecase.NewJobRunner(ledger, baseLogger.With("component", "jobs"))

	api := httpapi.NewServer(httpapi.Deps{
		Processor:         processor,
		Refresher:         refresher,
		Runner:            runner,
		Ledger:            ledger,
		Relations:         relations,
		FullRebootMonths:  cfg.Ingestion.FullRebootMonths,
		IncrementalMonths: cfg.Ingestion.IncrementalMonths,
		Logger:            baseLogger.With("component", "http"),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		server:    server,
		scheduler: scheduler.NewTickerScheduler(cfg.Ingestion.RefreshInterval),
		runner:    runner,
		refresher: refresher,
	}, nil
}

// Run seeds reference data, starts the refresh scheduler and serves HTTP until
// the context is cancelled or a termination signal arrives.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := a.seedStates(ctx); err != nil {
		return err
	}

	a.startRefreshLoop(ctx)
	defer func() { _ = a.scheduler.Stop(context.Background()) }()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return a.db.Close()
}

func (a *Application) seedStates(ctx context.Context) error {
	states := storage.NewStateRepository(a.db)

	count, err := states.CountStates(ctx)
	if err != nil {
		return fmt.Errorf("count states: %w", err)
	}
	if count > 0 {
		return nil
	}

	entries, err := storage.LoadStatesFile(a.cfg.States.File)
	if err != nil {
		return fmt.Errorf("load states file: %w", err)
	}
	if err := states.SeedStates(ctx, entries); err != nil {
		return fmt.Errorf("seed states: %w", err)
	}

	a.logger.Info("seeded state whitelist", "count", len(entries))
	return nil
}

func (a *Application) startRefreshLoop(ctx context.Context) {
	if len(a.cfg.Ingestion.Feeds) == 0 {
		a.logger.Warn("no feeds configured, periodic refresh disabled")
		return
	}

	months := a.cfg.Ingestion.IncrementalMonths
	_ = a.scheduler.Start(ctx, func(time.Time) {
		err := a.runner.Run(ctx, usecase.JobIncrementalRefresh, func(jobCtx context.Context) error {
			return a.refresher.Incremental(jobCtx, months)
		})
		if err != nil {
			a.logger.Warn("scheduled refresh skipped", "error", err)
		}
	})
}

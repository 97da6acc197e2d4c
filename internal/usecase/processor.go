package usecase

import (
	"context"
	"log/slog"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/metrics"
	"GeoGlobe/internal/ports"
	"GeoGlobe/internal/segment"
)

// ProcessorDeps wires the storage and backend collaborators into the pipeline.
type ProcessorDeps struct {
	Events        ports.EventRepository
	Rows          ports.RowRepository
	States        ports.StateRepository
	ExtractClient ports.ModelClient
	GroundClient  ports.ModelClient
	GroundRetries int
	Logger        *slog.Logger
}

// Processor drives the extraction-and-grounding pipeline over persisted
// sentence rows. Rows are handled strictly sequentially and every stage
// result is written through immediately, so a crash after row n never loses
// rows 1..n-1 and re-running the same mode only re-attempts incomplete rows.
type Processor struct {
	events        ports.EventRepository
	rows          ports.RowRepository
	states        ports.StateRepository
	extractClient ports.ModelClient
	groundClient  ports.ModelClient
	groundRetries int
	logger        *slog.Logger
}

// Result reports what a pipeline run did.
type Result struct {
	Materialized int `json:"materialized"`
	Processed    int `json:"processed"`
}

// NewProcessor constructs the pipeline orchestrator.
func NewProcessor(deps ProcessorDeps) *Processor {
	return &Processor{
		events:        deps.Events,
		rows:          deps.Rows,
		states:        deps.States,
		extractClient: deps.ExtractClient,
		groundClient:  deps.GroundClient,
		groundRetries: deps.GroundRetries,
		logger:        deps.Logger,
	}
}

// Process materializes sentence rows for new events, then walks the rows
// selected by mode: extraction when the triple is missing, grounding when
// extraction is complete and states are not yet resolved. Per-row backend
// failures are logged and skipped; only structural failures abort the run.
func (p *Processor) Process(ctx context.Context, mode domain.ProcessingMode, limit int) (Result, error) {
	materialized, err := p.materialize(ctx)
	if err != nil {
		return Result{}, &domain.FatalPipelineError{Op: "materialize rows", Err: err}
	}
	p.logger.Info("materialized sentence rows", "inserted", materialized)

	// The whitelist is loaded once per run, before any grounding call.
	states, err := p.states.ListStates(ctx)
	if err != nil {
		return Result{}, &domain.FatalPipelineError{Op: "load state whitelist", Err: err}
	}
	stateSet := make(map[string]struct{}, len(states))
	isoByName := make(map[string]string, len(states))
	for _, s := range states {
		stateSet[s.Name] = struct{}{}
		isoByName[s.Name] = s.ISO3
	}
	if len(states) == 0 {
		p.logger.Warn("state whitelist is empty, grounding will resolve nothing")
	}

	rows, err := p.rows.SelectRows(ctx, mode, limit)
	if err != nil {
		return Result{}, &domain.FatalPipelineError{Op: "select rows", Err: err}
	}
	p.logger.Info("selected rows", "mode", mode, "count", len(rows))

	if len(rows) == 0 {
		return Result{Materialized: materialized}, nil
	}

	grounder := NewGrounder(p.groundClient, stateSet, p.groundRetries, p.logger)

	processed := 0
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return Result{Materialized: materialized, Processed: processed}, err
		}

		row := &rows[i]
		if err := p.processRow(ctx, row, grounder, isoByName); err != nil {
			return Result{Materialized: materialized, Processed: processed}, err
		}

		processed++
		metrics.RowsProcessed.Inc()
	}

	if _, err := p.events.MarkResolvedEventsDone(ctx); err != nil {
		p.logger.Warn("marking resolved events done failed", "error", err)
	}

	return Result{Materialized: materialized, Processed: processed}, nil
}

// processRow runs the two per-row stages, persisting each result immediately.
func (p *Processor) processRow(ctx context.Context, row *domain.ActorTargetRow, grounder *Grounder, isoByName map[string]string) error {
	log := p.logger.With("row_id", row.ID, "event_id", row.EventID)

	if !row.ExtractionComplete() {
		ext, err := ExtractRelation(ctx, p.extractClient, row.SentenceText)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A failed backend call abandons this row only; siblings
			// continue.
			log.Warn("extraction failed, skipping row", "error", err)
			return nil
		}
		if ext != nil {
			if err := p.rows.UpdateExtraction(ctx, row.ID, ext.Actor, ext.Target, ext.EventType); err != nil {
				return &domain.FatalPipelineError{Op: "persist extraction", Err: err}
			}
			row.Actor, row.Target, row.EventType = ext.Actor, ext.Target, ext.EventType
			log.Debug("extraction stored",
				"actor", deref(row.Actor), "target", deref(row.Target), "event_type", deref(row.EventType))
		} else {
			log.Debug("sentence yields no event")
		}
	}

	if row.ExtractionComplete() && !row.StatesResolved {
		pair, err := grounder.Resolve(ctx, *row.Actor, *row.Target, *row.EventType, row.SentenceText)
		if err != nil {
			return err
		}

		var actorISO, targetISO *string
		if pair.ActorState != nil {
			if iso, ok := isoByName[*pair.ActorState]; ok {
				actorISO = &iso
			}
		}
		if pair.TargetState != nil {
			if iso, ok := isoByName[*pair.TargetState]; ok {
				targetISO = &iso
			}
		}

		if err := p.rows.UpdateGrounding(ctx, row.ID, pair.ActorState, pair.TargetState, actorISO, targetISO); err != nil {
			return &domain.FatalPipelineError{Op: "persist grounding", Err: err}
		}
		row.ActorState, row.TargetState = pair.ActorState, pair.TargetState
		row.ActorStateISO3, row.TargetStateISO3 = actorISO, targetISO
		row.StatesResolved = true
		log.Debug("grounding stored",
			"actor_state", deref(row.ActorState), "target_state", deref(row.TargetState))
	}

	return nil
}

// materialize inserts one row per sentence for events not yet seen by the
// pipeline. Insertion is idempotent: existing (event, index) rows are kept.
func (p *Processor) materialize(ctx context.Context) (int, error) {
	events, err := p.events.UnmaterializedEvents(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.TextProcessed == nil {
			continue
		}
		sentences := segment.Sentences(*ev.TextProcessed)
		if len(sentences) == 0 {
			continue
		}
		n, err := p.rows.InsertSentenceRows(ctx, ev.ID, sentences)
		if err != nil {
			return inserted, err
		}
		inserted += n
		ids = append(ids, ev.ID)
	}

	if len(ids) > 0 {
		if err := p.events.MarkEventsProcessing(ctx, ids); err != nil {
			return inserted, err
		}
	}

	return inserted, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

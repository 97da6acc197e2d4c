package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"GeoGlobe/internal/cleaner"
	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/metrics"
	"GeoGlobe/internal/ports"
)

// Refresher runs the ingestion jobs: fetch raw posts for a window, preprocess
// them and insert the resulting events.
type Refresher struct {
	source ports.PostSource
	events ports.EventRepository
	logger *slog.Logger
}

// NewRefresher wires the post source and event repository.
func NewRefresher(source ports.PostSource, events ports.EventRepository, logger *slog.Logger) *Refresher {
	return &Refresher{source: source, events: events, logger: logger}
}

// FullReboot clears the events table and re-ingests the past monthsBack
// months.
func (r *Refresher) FullReboot(ctx context.Context, monthsBack int) error {
	if err := r.events.ClearEvents(ctx); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	from, to := windowFromMonths(monthsBack)
	return r.ingestWindow(ctx, from, to)
}

// Incremental ingests the past monthsBack months on top of existing events;
// already-known events are skipped by the idempotent insert.
func (r *Refresher) Incremental(ctx context.Context, monthsBack int) error {
	from, to := windowFromMonths(monthsBack)
	return r.ingestWindow(ctx, from, to)
}

// Period ingests an explicit [from, to] window.
func (r *Refresher) Period(ctx context.Context, from, to time.Time) error {
	return r.ingestWindow(ctx, from, to)
}

func (r *Refresher) ingestWindow(ctx context.Context, from, to time.Time) error {
	posts, err := r.source.FetchWindow(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch posts: %w", err)
	}
	r.logger.Info("fetched posts", "count", len(posts), "from", from, "to", to)

	events := preprocess(posts)
	if err := r.events.InsertEvents(ctx, events); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	metrics.EventsIngested.Add(float64(len(events)))

	return nil
}

// preprocess assigns event ids and runs the text cleaning pipeline.
func preprocess(posts []domain.Post) []domain.Event {
	events := make([]domain.Event, 0, len(posts))
	for _, post := range posts {
		clean, hashtags, emojis := cleaner.Process(post.TextRaw)

		ev := domain.Event{
			ID:        uuid.NewString(),
			Source:    post.Source,
			TextRaw:   post.TextRaw,
			Lang:      post.Lang,
			Hashtags:  hashtags,
			Emojis:    emojis,
			CreatedAt: post.CreatedAt,
			Status:    domain.EventPending,
		}
		if clean != "" {
			ev.TextProcessed = &clean
		}
		events = append(events, ev)
	}
	return events
}

func windowFromMonths(monthsBack int) (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.AddDate(0, -monthsBack, 0), now
}

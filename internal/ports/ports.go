package ports

import (
	"context"
	"time"

	"GeoGlobe/internal/domain"
)

// ModelClient sends a prompt to the generative backend and returns its raw
// output text. Implementations enforce their own timeout and surface failures
// as domain.BackendError / domain.ErrTimeout.
type ModelClient interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// PostSource pulls raw posts from an upstream channel for a time window.
type PostSource interface {
	FetchWindow(ctx context.Context, from, to time.Time) ([]domain.Post, error)
}

// EventRepository persists ingested events and their processing status.
type EventRepository interface {
	InsertEvents(ctx context.Context, events []domain.Event) error
	ClearEvents(ctx context.Context) error
	// UnmaterializedEvents returns events with cleaned text that have no
	// sentence rows yet.
	UnmaterializedEvents(ctx context.Context) ([]domain.Event, error)
	MarkEventsProcessing(ctx context.Context, ids []string) error
	// MarkResolvedEventsDone flips events whose rows are all grounded to done.
	MarkResolvedEventsDone(ctx context.Context) (int64, error)
}

// RowRepository owns the actortargetevents table.
type RowRepository interface {
	// InsertSentenceRows materializes one row per sentence; rows already
	// present for (event, index) are left untouched.
	InsertSentenceRows(ctx context.Context, eventID string, sentences []string) (int, error)
	SelectRows(ctx context.Context, mode domain.ProcessingMode, limit int) ([]domain.ActorTargetRow, error)
	UpdateExtraction(ctx context.Context, rowID int64, actor, target, eventType *string) error
	UpdateGrounding(ctx context.Context, rowID int64, actorState, targetState, actorISO3, targetISO3 *string) error
}

// StateRepository serves the sovereign-state whitelist.
type StateRepository interface {
	ListStates(ctx context.Context) ([]domain.State, error)
	CountStates(ctx context.Context) (int64, error)
	SeedStates(ctx context.Context, states []domain.State) error
}

// JobLedger records one global run state per named job. Start returns
// domain.ErrJobAlreadyRunning without side effects when the job is running.
type JobLedger interface {
	Start(ctx context.Context, name string) error
	Finish(ctx context.Context, name string) error
	Fail(ctx context.Context, name string, message string) error
	IsRunning(ctx context.Context, name string) (bool, error)
	Get(ctx context.Context, name string) (*domain.Job, error)
}

// RelationReader exposes reporting views over resolved rows.
type RelationReader interface {
	GlobeRelations(ctx context.Context) ([]domain.GlobeRelation, error)
	Relations(ctx context.Context, from, to *time.Time) ([]domain.Relation, error)
}

// Scheduler drives recurring background work.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

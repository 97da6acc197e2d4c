package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"GeoGlobe/internal/domain"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.DiscardHandler)
}

// scripted is one canned backend response.
type scripted struct {
	out string
	err error
}

// fakeModelClient replays scripted outputs and records the prompts it saw.
type fakeModelClient struct {
	script  []scripted
	prompts []string
}

func (f *fakeModelClient) Run(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.script) == 0 {
		return "", fmt.Errorf("fake client script exhausted after %d calls", len(f.prompts))
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next.out, next.err
}

func (f *fakeModelClient) calls() int { return len(f.prompts) }

// fakeStore is an in-memory stand-in for the postgres repositories.
type fakeStore struct {
	events map[string]*domain.Event
	rows   []*domain.ActorTargetRow
	states []domain.State
	nextID int64

	failUpdateExtraction bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: map[string]*domain.Event{}, nextID: 1}
}

func (s *fakeStore) addEvent(id, text string) {
	s.events[id] = &domain.Event{ID: id, TextProcessed: &text, Status: domain.EventPending}
}

func (s *fakeStore) InsertEvents(_ context.Context, events []domain.Event) error {
	for i := range events {
		ev := events[i]
		if _, ok := s.events[ev.ID]; ok {
			continue
		}
		s.events[ev.ID] = &ev
	}
	return nil
}

func (s *fakeStore) ClearEvents(context.Context) error {
	s.events = map[string]*domain.Event{}
	return nil
}

func (s *fakeStore) UnmaterializedEvents(context.Context) ([]domain.Event, error) {
	materialized := map[string]bool{}
	for _, r := range s.rows {
		materialized[r.EventID] = true
	}

	var out []domain.Event
	for _, ev := range s.events {
		if ev.TextProcessed != nil && !materialized[ev.ID] {
			out = append(out, *ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) MarkEventsProcessing(_ context.Context, ids []string) error {
	for _, id := range ids {
		if ev, ok := s.events[id]; ok {
			ev.Status = domain.EventProcessing
		}
	}
	return nil
}

func (s *fakeStore) MarkResolvedEventsDone(context.Context) (int64, error) {
	var n int64
	for _, ev := range s.events {
		if ev.Status != domain.EventProcessing {
			continue
		}
		all := true
		any := false
		for _, r := range s.rows {
			if r.EventID == ev.ID {
				any = true
				all = all && r.StatesResolved
			}
		}
		if any && all {
			ev.Status = domain.EventDone
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) InsertSentenceRows(_ context.Context, eventID string, sentences []string) (int, error) {
	inserted := 0
	for idx, text := range sentences {
		exists := false
		for _, r := range s.rows {
			if r.EventID == eventID && r.SentenceIndex == idx {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		s.rows = append(s.rows, &domain.ActorTargetRow{
			ID:            s.nextID,
			EventID:       eventID,
			SentenceIndex: idx,
			SentenceText:  text,
		})
		s.nextID++
		inserted++
	}
	return inserted, nil
}

func (s *fakeStore) SelectRows(_ context.Context, mode domain.ProcessingMode, limit int) ([]domain.ActorTargetRow, error) {
	switch mode {
	case domain.ModeAll, domain.ModeLastN, domain.ModeMissingExtraction, domain.ModeMissingStates:
	default:
		return nil, fmt.Errorf("unknown processing mode %q", mode)
	}

	var out []domain.ActorTargetRow
	for _, r := range s.rows {
		switch mode {
		case domain.ModeAll, domain.ModeLastN:
			out = append(out, *r)
		case domain.ModeMissingExtraction:
			if !r.ExtractionComplete() {
				out = append(out, *r)
			}
		case domain.ModeMissingStates:
			if !r.StatesResolved {
				out = append(out, *r)
			}
		}
	}

	desc := mode == domain.ModeLastN
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) row(id int64) *domain.ActorTargetRow {
	for _, r := range s.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *fakeStore) UpdateExtraction(_ context.Context, rowID int64, actor, target, eventType *string) error {
	if s.failUpdateExtraction {
		return fmt.Errorf("storage unavailable")
	}
	r := s.row(rowID)
	if r == nil {
		return fmt.Errorf("row %d not found", rowID)
	}
	r.Actor, r.Target, r.EventType = actor, target, eventType
	return nil
}

func (s *fakeStore) UpdateGrounding(_ context.Context, rowID int64, actorState, targetState, actorISO, targetISO *string) error {
	r := s.row(rowID)
	if r == nil {
		return fmt.Errorf("row %d not found", rowID)
	}
	r.ActorState, r.TargetState = actorState, targetState
	r.ActorStateISO3, r.TargetStateISO3 = actorISO, targetISO
	r.StatesResolved = true
	return nil
}

func (s *fakeStore) ListStates(context.Context) ([]domain.State, error) {
	return s.states, nil
}

func (s *fakeStore) CountStates(context.Context) (int64, error) {
	return int64(len(s.states)), nil
}

func (s *fakeStore) SeedStates(_ context.Context, states []domain.State) error {
	s.states = append(s.states, states...)
	return nil
}

// fakeLedger mimics the postgres job ledger's start guard.
type fakeLedger struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{jobs: map[string]*domain.Job{}}
}

func (l *fakeLedger) Start(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if j, ok := l.jobs[name]; ok && j.Status == domain.JobRunning {
		return domain.ErrJobAlreadyRunning
	}
	l.jobs[name] = &domain.Job{Name: name, Status: domain.JobRunning, StartedAt: time.Now()}
	return nil
}

func (l *fakeLedger) Finish(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.jobs[name].Status = domain.JobDone
	l.jobs[name].FinishedAt = &now
	return nil
}

func (l *fakeLedger) Fail(_ context.Context, name, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.jobs[name].Status = domain.JobFailed
	l.jobs[name].FinishedAt = &now
	l.jobs[name].Error = &message
	return nil
}

func (l *fakeLedger) IsRunning(_ context.Context, name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	j, ok := l.jobs[name]
	return ok && j.Status == domain.JobRunning, nil
}

func (l *fakeLedger) Get(_ context.Context, name string) (*domain.Job, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	j, ok := l.jobs[name]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func strptr(s string) *string { return &s }

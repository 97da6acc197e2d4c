// Package storage implements the postgres repositories behind the core's
// collaborator interfaces.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// EventRepository persists ingested events.
type EventRepository struct {
	db *sql.DB
}

var _ ports.EventRepository = (*EventRepository)(nil)

// NewEventRepository wires a sql.DB implementation.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertEvents upserts preprocessed events; already-known ids are skipped.
func (r *EventRepository) InsertEvents(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	query := `INSERT INTO events
	          (event_id, source, text_raw, text_processed, created_at, lang, hashtags, emojis, processing_status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (event_id) DO NOTHING`

	for _, ev := range events {
		_, err := r.db.ExecContext(ctx, query,
			ev.ID,
			ev.Source,
			ev.TextRaw,
			nullString(ev.TextProcessed),
			ev.CreatedAt,
			ev.Lang,
			pq.StringArray(ev.Hashtags),
			pq.StringArray(ev.Emojis),
			string(ev.Status),
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}
	return nil
}

// ClearEvents wipes the events table for a full reboot.
func (r *EventRepository) ClearEvents(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

// UnmaterializedEvents returns events with cleaned text that have no sentence
// rows yet.
func (r *EventRepository) UnmaterializedEvents(ctx context.Context) ([]domain.Event, error) {
	query, args, err := psql.
		Select("event_id", "text_processed").
		From("events").
		Where("text_processed IS NOT NULL").
		Where("event_id NOT IN (SELECT DISTINCT event_id FROM actortargetevents)").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unmaterialized events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			ev   domain.Event
			text sql.NullString
		)
		if err := rows.Scan(&ev.ID, &text); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.TextProcessed = fromNullString(text)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return events, nil
}

// MarkEventsProcessing flips the given events to the processing status.
func (r *EventRepository) MarkEventsProcessing(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE events SET processing_status = 'processing' WHERE event_id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.StringArray(ids)); err != nil {
		return fmt.Errorf("mark events processing: %w", err)
	}
	return nil
}

// MarkResolvedEventsDone flips events whose sentence rows are all grounded.
func (r *EventRepository) MarkResolvedEventsDone(ctx context.Context) (int64, error) {
	query := `UPDATE events
	          SET processing_status = 'done'
	          WHERE processing_status = 'processing'
	            AND event_id IN (SELECT DISTINCT event_id FROM actortargetevents)
	            AND event_id NOT IN (
	                SELECT event_id FROM actortargetevents WHERE states_resolved = FALSE
	            )`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("mark events done: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

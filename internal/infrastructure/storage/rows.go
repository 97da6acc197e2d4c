package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/ports"
)

// RowRepository owns the actortargetevents table.
type RowRepository struct {
	db *sql.DB
}

var _ ports.RowRepository = (*RowRepository)(nil)

// NewRowRepository wires a sql.DB implementation.
func NewRowRepository(db *sql.DB) *RowRepository {
	return &RowRepository{db: db}
}

// InsertSentenceRows materializes one empty row per sentence. The
// (event_id, sentence_index) conflict target makes the insert idempotent:
// existing rows are never overwritten or duplicated.
func (r *RowRepository) InsertSentenceRows(ctx context.Context, eventID string, sentences []string) (int, error) {
	query := `INSERT INTO actortargetevents (event_id, sentence_index, sentence_text, states_resolved)
	          VALUES ($1, $2, $3, FALSE)
	          ON CONFLICT (event_id, sentence_index) DO NOTHING`

	inserted := 0
	for idx, sentence := range sentences {
		res, err := r.db.ExecContext(ctx, query, eventID, idx, sentence)
		if err != nil {
			return inserted, fmt.Errorf("insert sentence row %s/%d: %w", eventID, idx, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

// selectRowsQuery builds the mode-dependent selection. Unknown modes are a
// programming error and fail immediately.
func selectRowsQuery(mode domain.ProcessingMode, limit int) (string, []any, error) {
	b := psql.
		Select(
			"id",
			"event_id",
			"sentence_index",
			"sentence_text",
			"actor",
			"target",
			"event_type",
			"actor_state",
			"target_state",
			"actor_state_iso3",
			"target_state_iso3",
			"states_resolved",
		).
		From("actortargetevents")

	switch mode {
	case domain.ModeAll:
		b = b.OrderBy("id")
	case domain.ModeLastN:
		b = b.OrderBy("id DESC")
	case domain.ModeMissingExtraction:
		b = b.Where("actor IS NULL OR target IS NULL OR event_type IS NULL").OrderBy("id")
	case domain.ModeMissingStates:
		b = b.Where(sq.Eq{"states_resolved": false}).OrderBy("id")
	default:
		return "", nil, fmt.Errorf("unknown processing mode %q", mode)
	}

	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	return b.ToSql()
}

// SelectRows returns the rows due for (re)processing under the given mode.
func (r *RowRepository) SelectRows(ctx context.Context, mode domain.ProcessingMode, limit int) ([]domain.ActorTargetRow, error) {
	query, args, err := selectRowsQuery(mode, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	var out []domain.ActorTargetRow
	for rows.Next() {
		var (
			row                      domain.ActorTargetRow
			actor, target, eventType sql.NullString
			actorState, targetState  sql.NullString
			actorISO, targetISO      sql.NullString
		)
		err := rows.Scan(
			&row.ID,
			&row.EventID,
			&row.SentenceIndex,
			&row.SentenceText,
			&actor,
			&target,
			&eventType,
			&actorState,
			&targetState,
			&actorISO,
			&targetISO,
			&row.StatesResolved,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.Actor = fromNullString(actor)
		row.Target = fromNullString(target)
		row.EventType = fromNullString(eventType)
		row.ActorState = fromNullString(actorState)
		row.TargetState = fromNullString(targetState)
		row.ActorStateISO3 = fromNullString(actorISO)
		row.TargetStateISO3 = fromNullString(targetISO)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return out, nil
}

// UpdateExtraction writes the extraction triple as one atomic statement.
func (r *RowRepository) UpdateExtraction(ctx context.Context, rowID int64, actor, target, eventType *string) error {
	query := `UPDATE actortargetevents
	          SET actor = $1, target = $2, event_type = $3
	          WHERE id = $4`

	_, err := r.db.ExecContext(ctx, query,
		nullString(actor), nullString(target), nullString(eventType), rowID)
	if err != nil {
		return fmt.Errorf("update extraction for row %d: %w", rowID, err)
	}
	return nil
}

// UpdateGrounding writes the grounding quadruple and flips states_resolved
// as one atomic statement.
func (r *RowRepository) UpdateGrounding(ctx context.Context, rowID int64, actorState, targetState, actorISO, targetISO *string) error {
	query := `UPDATE actortargetevents
	          SET actor_state = $1,
	              target_state = $2,
	              actor_state_iso3 = $3,
	              target_state_iso3 = $4,
	              states_resolved = TRUE
	          WHERE id = $5`

	_, err := r.db.ExecContext(ctx, query,
		nullString(actorState), nullString(targetState), nullString(actorISO), nullString(targetISO), rowID)
	if err != nil {
		return fmt.Errorf("update grounding for row %d: %w", rowID, err)
	}
	return nil
}

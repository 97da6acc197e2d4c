package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/ports"
)

// RelationReader serves the reporting views over resolved rows. Only rows
// with states_resolved = TRUE and both states present contribute.
type RelationReader struct {
	db *sql.DB
}

var _ ports.RelationReader = (*RelationReader)(nil)

// NewRelationReader wires a sql.DB implementation.
func NewRelationReader(db *sql.DB) *RelationReader {
	return &RelationReader{db: db}
}

// GlobeRelations aggregates resolved state pairs per event type.
func (r *RelationReader) GlobeRelations(ctx context.Context) ([]domain.GlobeRelation, error) {
	query, args, err := psql.
		Select("actor_state", "target_state", "event_type", "COUNT(*) AS weight").
		From("actortargetevents").
		Where(sq.Eq{"states_resolved": true}).
		Where("actor_state IS NOT NULL").
		Where("target_state IS NOT NULL").
		GroupBy("actor_state", "target_state", "event_type").
		OrderBy("weight DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query globe relations: %w", err)
	}
	defer rows.Close()

	var out []domain.GlobeRelation
	for rows.Next() {
		var rel domain.GlobeRelation
		if err := rows.Scan(&rel.Source, &rel.Target, &rel.EventType, &rel.Weight); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return out, nil
}

// Relations returns ISO3-keyed edges joined with state coordinates,
// optionally bounded by the owning event's creation date.
func (r *RelationReader) Relations(ctx context.Context, from, to *time.Time) ([]domain.Relation, error) {
	b := psql.
		Select(
			"e.actor_state_iso3",
			"e.target_state_iso3",
			"e.event_type",
			"COUNT(*) AS weight",
			"sa.latitude", "sa.longitude",
			"st.latitude", "st.longitude",
		).
		From("actortargetevents e").
		Join("states sa ON sa.iso3 = e.actor_state_iso3").
		Join("states st ON st.iso3 = e.target_state_iso3").
		Join("events ev ON ev.event_id = e.event_id").
		Where(sq.Eq{"e.states_resolved": true}).
		Where("e.actor_state_iso3 IS NOT NULL").
		Where("e.target_state_iso3 IS NOT NULL").
		Where("e.event_type IS NOT NULL")

	if from != nil {
		b = b.Where(sq.GtOrEq{"ev.created_at": *from})
	}
	if to != nil {
		b = b.Where(sq.LtOrEq{"ev.created_at": *to})
	}

	query, args, err := b.
		GroupBy(
			"e.actor_state_iso3", "e.target_state_iso3", "e.event_type",
			"sa.latitude", "sa.longitude", "st.latitude", "st.longitude",
		).
		OrderBy("weight DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	defer rows.Close()

	var out []domain.Relation
	for rows.Next() {
		var rel domain.Relation
		err := rows.Scan(
			&rel.Source, &rel.Target, &rel.EventType, &rel.Weight,
			&rel.SourceLat, &rel.SourceLon, &rel.TargetLat, &rel.TargetLon,
		)
		if err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return out, nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/ports"
)

// StateRepository serves the sovereign-state whitelist from the states table.
type StateRepository struct {
	db *sql.DB
}

var _ ports.StateRepository = (*StateRepository)(nil)

// NewStateRepository wires a sql.DB implementation.
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// ListStates returns the full whitelist, name-ordered.
func (r *StateRepository) ListStates(ctx context.Context) ([]domain.State, error) {
	query, args, err := psql.
		Select("name", "iso3", "latitude", "longitude").
		From("states").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	var states []domain.State
	for rows.Next() {
		var (
			s        domain.State
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&s.Name, &s.ISO3, &lat, &lon); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		if lat.Valid {
			v := lat.Float64
			s.Lat = &v
		}
		if lon.Valid {
			v := lon.Float64
			s.Lon = &v
		}
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return states, nil
}

// CountStates reports how many whitelist entries exist.
func (r *StateRepository) CountStates(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM states`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count states: %w", err)
	}
	return n, nil
}

// SeedStates upserts reference states by ISO3 code.
func (r *StateRepository) SeedStates(ctx context.Context, states []domain.State) error {
	query := `INSERT INTO states (name, iso3, latitude, longitude)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (iso3) DO UPDATE
	          SET name = EXCLUDED.name,
	              latitude = EXCLUDED.latitude,
	              longitude = EXCLUDED.longitude`

	for _, s := range states {
		var lat, lon sql.NullFloat64
		if s.Lat != nil {
			lat = sql.NullFloat64{Float64: *s.Lat, Valid: true}
		}
		if s.Lon != nil {
			lon = sql.NullFloat64{Float64: *s.Lon, Valid: true}
		}
		if _, err := r.db.ExecContext(ctx, query, s.Name, s.ISO3, lat, lon); err != nil {
			return fmt.Errorf("seed state %s: %w", s.ISO3, err)
		}
	}
	return nil
}

// stateFileEntry matches the reference states.json layout.
type stateFileEntry struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

// LoadStatesFile reads the reference whitelist from a JSON file.
func LoadStatesFile(path string) ([]domain.State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read states file: %w", err)
	}

	var entries []stateFileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse states file: %w", err)
	}

	states := make([]domain.State, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || e.Name == "" {
			continue
		}
		states = append(states, domain.State{Name: e.Name, ISO3: e.ID, Lat: e.Lat, Lon: e.Lon})
	}
	return states, nil
}

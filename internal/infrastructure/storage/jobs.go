package storage

import (
	"context"
	"database/sql"
	"fmt"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/ports"
)

// JobLedger records one global run state per named job in the jobs table.
type JobLedger struct {
	db *sql.DB
}

var _ ports.JobLedger = (*JobLedger)(nil)

// NewJobLedger wires a sql.DB implementation.
func NewJobLedger(db *sql.DB) *JobLedger {
	return &JobLedger{db: db}
}

// Start transitions the job to running. The guarded upsert rejects the start
// atomically when a run is already in flight, leaving started_at untouched.
func (l *JobLedger) Start(ctx context.Context, name string) error {
	query := `INSERT INTO jobs (job_name, status, started_at)
	          VALUES ($1, 'running', NOW())
	          ON CONFLICT (job_name) DO UPDATE
	          SET status = 'running',
	              started_at = NOW(),
	              finished_at = NULL,
	              error = NULL
	          WHERE jobs.status <> 'running'`

	res, err := l.db.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("start job %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrJobAlreadyRunning
	}
	return nil
}

// Finish marks the job done.
func (l *JobLedger) Finish(ctx context.Context, name string) error {
	query := `UPDATE jobs SET status = 'done', finished_at = NOW() WHERE job_name = $1`
	if _, err := l.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("finish job %s: %w", name, err)
	}
	return nil
}

// Fail marks the job failed and records the diagnostic text.
func (l *JobLedger) Fail(ctx context.Context, name, message string) error {
	query := `UPDATE jobs SET status = 'failed', finished_at = NOW(), error = $1 WHERE job_name = $2`
	if _, err := l.db.ExecContext(ctx, query, message, name); err != nil {
		return fmt.Errorf("fail job %s: %w", name, err)
	}
	return nil
}

// IsRunning reports whether a run of the named job is in flight.
func (l *JobLedger) IsRunning(ctx context.Context, name string) (bool, error) {
	var status string
	err := l.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE job_name = $1`, name).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query job %s: %w", name, err)
	}
	return status == string(domain.JobRunning), nil
}

// Get returns the job record, or nil when the job has never run.
func (l *JobLedger) Get(ctx context.Context, name string) (*domain.Job, error) {
	query := `SELECT job_name, status, started_at, finished_at, error FROM jobs WHERE job_name = $1`

	var (
		job        domain.Job
		finishedAt sql.NullTime
		errText    sql.NullString
	)
	err := l.db.QueryRowContext(ctx, query, name).
		Scan(&job.Name, &job.Status, &job.StartedAt, &finishedAt, &errText)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query job %s: %w", name, err)
	}

	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	job.Error = fromNullString(errText)

	return &job, nil
}

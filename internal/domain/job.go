package domain

import "time"

// JobStatus is the global run state of a named job.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job records one long-running operation per name. A job transitions
// (absent|done|failed) -> running -> (done|failed); a second start while
// running is rejected.
type Job struct {
	Name       string     `json:"name"`
	Status     JobStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      *string    `json:"error,omitempty"`
}

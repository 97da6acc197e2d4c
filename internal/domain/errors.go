package domain

import (
	"errors"
	"fmt"
)

// ErrTimeout marks a model backend call that exceeded its deadline. The
// backend process is killed before this is returned.
var ErrTimeout = errors.New("model backend timed out")

// ErrJobAlreadyRunning is returned when starting a job whose previous run has
// not finished.
var ErrJobAlreadyRunning = errors.New("job is already running")

// BackendError reports a model backend process that exited non-zero.
type BackendError struct {
	Output string
}

func (e *BackendError) Error() string {
	if e.Output == "" {
		return "model backend failed"
	}
	return fmt.Sprintf("model backend failed: %s", e.Output)
}

// FatalPipelineError is a structural failure that stops the run and surfaces
// to the job ledger. Per-row failures never become one.
type FatalPipelineError struct {
	Op  string
	Err error
}

func (e *FatalPipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Op, e.Err)
}

func (e *FatalPipelineError) Unwrap() error { return e.Err }

package usecase

import (
	"context"
	"log/slog"

	"GeoGlobe/internal/ports"
)

// Job names recorded in the ledger.
const (
	JobLLMProcessing      = "llm_processing"
	JobFullReboot         = "full_reboot"
	JobIncrementalRefresh = "incremental_refresh"
	JobFetchPeriod        = "fetch_period"
)

// JobRunner executes long-running operations in the background under the job
// ledger's at-most-one-concurrent-run-per-name guarantee.
type JobRunner struct {
	ledger ports.JobLedger
	logger *slog.Logger
}

// NewJobRunner wires the ledger.
func NewJobRunner(ledger ports.JobLedger, logger *slog.Logger) *JobRunner {
	return &JobRunner{ledger: ledger, logger: logger}
}

// Run marks the job running and executes fn in a goroutine detached from the
// caller's cancellation. It returns domain.ErrJobAlreadyRunning when a run of
// the same name has not finished. Every started job ends as exactly one of
// done or failed; on failure the error text is recorded, never the caller's
// stack or raw backend output.
func (j *JobRunner) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := j.ledger.Start(ctx, name); err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		log := j.logger.With("job", name)
		log.Info("job started")

		if err := fn(bg); err != nil {
			log.Error("job failed", "error", err)
			if ferr := j.ledger.Fail(bg, name, err.Error()); ferr != nil {
				log.Error("recording job failure failed", "error", ferr)
			}
			return
		}

		if err := j.ledger.Finish(bg, name); err != nil {
			log.Error("recording job completion failed", "error", err)
			return
		}
		log.Info("job finished")
	}()

	return nil
}

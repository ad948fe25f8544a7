package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalDispatcher runs export jobs in-process. It stands in for the Pub/Sub
// publisher in local development and single-binary deployments, where the
// API and the worker share one process.
type LocalDispatcher struct {
	runner Runner
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewLocalDispatcher creates a dispatcher that executes jobs on background
// goroutines.
func NewLocalDispatcher(runner Runner, logger zerolog.Logger) *LocalDispatcher {
	return &LocalDispatcher{
		runner: runner,
		logger: logger,
	}
}

// Dispatch starts the job in a goroutine and returns a synthetic trigger id.
// The job's own context is detached from the request: an export outlives the
// HTTP call that started it.
func (d *LocalDispatcher) Dispatch(_ context.Context, jobID string) (string, error) {
	triggerID := "local_" + uuid.New().String()[:8]

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.runner.Run(context.Background(), jobID); err != nil {
			d.logger.Error().Err(err).Str("job_id", jobID).Msg("local export run failed")
		}
	}()

	return triggerID, nil
}

// Wait blocks until all dispatched jobs have finished. Used on shutdown and
// in tests.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}

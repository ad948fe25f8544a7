package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendroom/sendroom/internal/worker"
)

// fakeRunner records the job ids it was asked to run.
type fakeRunner struct {
	mu   sync.Mutex
	runs []string
	err  error
}

func (r *fakeRunner) Run(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, jobID)
	return r.err
}

func TestLocalDispatcher_RunsJob(t *testing.T) {
	runner := &fakeRunner{}
	d := worker.NewLocalDispatcher(runner, zerolog.Nop())

	triggerID, err := d.Dispatch(context.Background(), "exp_abc")
	require.NoError(t, err)
	assert.Contains(t, triggerID, "local_")

	d.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, []string{"exp_abc"}, runner.runs)
}

func TestLocalDispatcher_RunErrorDoesNotPropagate(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	d := worker.NewLocalDispatcher(runner, zerolog.Nop())

	// Dispatch succeeds even when the run later fails; the failure lands on
	// the job record, not the caller.
	_, err := d.Dispatch(context.Background(), "exp_abc")
	require.NoError(t, err)

	d.Wait()
}

func TestLocalDispatcher_ConcurrentDispatches(t *testing.T) {
	runner := &fakeRunner{}
	d := worker.NewLocalDispatcher(runner, zerolog.Nop())

	for i := 0; i < 10; i++ {
		_, err := d.Dispatch(context.Background(), "exp_abc")
		require.NoError(t, err)
	}

	d.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Len(t, runner.runs, 10)
}

package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/protocol"
)

// DirectStepRunner passes node work straight through: no persistence, no
// retry. Used in synchronous mode, where durability is traded for latency.
type DirectStepRunner struct{}

// NewDirectStepRunner creates the pass-through runner.
func NewDirectStepRunner() *DirectStepRunner {
	return &DirectStepRunner{}
}

func (r *DirectStepRunner) Run(ctx context.Context, _ string, fn protocol.StepFunc) (models.Object, error) {
	return fn(ctx)
}

// ExecutionStore persists execution records with per-record update semantics.
type ExecutionStore interface {
	UpdateExecution(ctx context.Context, execution *models.Execution) error
}

// DurableStepRunner wraps node work in a retryable, cached step. Completed
// results are stored on the execution record so re-execution after a process
// restart does not repeat finished work.
type DurableStepRunner struct {
	execution   *models.Execution
	store       ExecutionStore
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger
}

// NewDurableStepRunner creates the runner for one execution.
func NewDurableStepRunner(execution *models.Execution, store ExecutionStore, maxAttempts int, backoffBase time.Duration, logger *slog.Logger) *DurableStepRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &DurableStepRunner{
		execution:   execution,
		store:       store,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		logger:      logger.With("module", "durable_steps", "execution_id", execution.ID),
	}
}

func (r *DurableStepRunner) Run(ctx context.Context, stepID string, fn protocol.StepFunc) (models.Object, error) {
	if cached, ok := r.execution.CachedStep(stepID); ok {
		r.logger.DebugContext(ctx, "step result served from cache", "step_id", stepID)

		return cached, nil
	}

	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		output, err := fn(ctx)
		if err == nil {
			r.execution.CacheStep(stepID, output)

			if storeErr := r.store.UpdateExecution(ctx, r.execution); storeErr != nil {
				// The step itself finished; a persistence hiccup only costs
				// the cache on restart.
				r.logger.WarnContext(ctx, "failed to persist step result",
					"step_id", stepID, "error", storeErr)
			}

			return output, nil
		}

		// Pause is a control signal, never retried.
		if IsPause(err) {
			return nil, err
		}

		lastErr = err

		if attempt == r.maxAttempts {
			break
		}

		delay := r.backoffBase * time.Duration(1<<(attempt-1))

		r.logger.WarnContext(ctx, "step failed, retrying",
			"step_id", stepID,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/strandworks/strand/pkg/events"
	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/persistence"
	"github.com/strandworks/strand/pkg/workflow"
)

// HandleJob is the queue handler for durable workflow work. A returned error
// makes the queue retry the job; pause is a terminal outcome for the job
// (the execution waits, a future resume job continues it).
func (s *Execution) HandleJob(ctx context.Context, job *models.QueuedJob) error {
	switch job.Kind {
	case models.JobWorkflowRun:
		return s.runDurable(ctx, job)
	case models.JobWorkflowResume:
		return s.resumeDurable(ctx, job)
	case models.JobAgentRun:
		if s.agents == nil {
			return fmt.Errorf("%w: %s (no agent runner configured)", ErrUnknownJobKind, job.Kind)
		}

		return s.agents.RunJob(ctx, job)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}
}

func (s *Execution) runDurable(ctx context.Context, job *models.QueuedJob) error {
	wf, err := s.persist.WorkflowRepository().GetByID(ctx, job.WorkflowID)
	if err != nil {
		return err
	}

	// The execution id is derived from the job so every retry of this job
	// finds the same record and never repeats completed durable steps.
	executionID := job.ExecutionID
	if executionID == "" {
		executionID = job.ID
	}

	execution, err := s.persist.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		if !persistence.IsExecutionNotFound(err) {
			return err
		}

		execution = &models.Execution{
			ID:             executionID,
			WorkflowID:     job.WorkflowID,
			UserID:         job.UserID,
			Status:         models.ExecutionRunning,
			CurrentContext: models.NewWorkflowContext(executionID, job.WorkflowID, job.UserID, job.Payload),
			StartedAt:      time.Now().UTC(),
		}

		if err := s.persist.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
			return err
		}

		s.publishEvent(ctx, executionID, events.ExecutionStarted{
			BaseEvent:   s.baseEvent(events.ExecutionStartedEvent, job.WorkflowID),
			ExecutionID: executionID,
			UserID:      job.UserID,
			TriggeredBy: string(job.TriggeredBy),
			Initial:     job.Payload,
		})
	}

	return s.drive(ctx, wf, execution)
}

func (s *Execution) resumeDurable(ctx context.Context, job *models.QueuedJob) error {
	execution, err := s.persist.ExecutionRepository().ExecutionByID(ctx, job.ExecutionID)
	if err != nil {
		return err
	}

	wf, err := s.persist.WorkflowRepository().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return err
	}

	wctx, err := workflow.ResumeContext(execution, job.Payload)
	if err != nil {
		return err
	}

	execution.CurrentContext = wctx
	execution.Status = models.ExecutionRunning
	execution.WaitReason = ""

	if err := s.persist.ExecutionRepository().UpdateExecution(ctx, execution); err != nil {
		return err
	}

	return s.drive(ctx, wf, execution)
}

// drive runs the workflow against the execution's context with durable
// steps, then persists the terminal (or waiting) state.
func (s *Execution) drive(ctx context.Context, wf *models.Workflow, execution *models.Execution) error {
	steps := workflow.NewDurableStepRunner(execution, s.persist.ExecutionRepository(), defaultStepAttempts, defaultStepBackoff, s.logger)

	started := time.Now()
	runErr := s.executor.Run(ctx, wf, execution.CurrentContext, steps)
	durationMs := time.Since(started).Milliseconds()

	switch {
	case runErr == nil:
		finished := time.Now().UTC()
		execution.Status = models.ExecutionCompleted
		execution.Error = ""
		execution.FinishedAt = &finished

		s.publishEvent(ctx, execution.ID, events.ExecutionCompleted{
			BaseEvent:     s.baseEvent(events.ExecutionCompletedEvent, wf.ID),
			ExecutionID:   execution.ID,
			DurationMs:    durationMs,
			NodesExecuted: len(execution.CurrentContext.CompletedNodes),
			Result:        execution.CurrentContext.Data,
		})
	case workflow.IsPause(runErr):
		var pause *workflow.PauseError

		execution.Status = models.ExecutionWaiting
		if errors.As(runErr, &pause) {
			execution.WaitReason = pause.Reason
		}

		s.publishEvent(ctx, execution.ID, events.ExecutionPaused{
			BaseEvent:   s.baseEvent(events.ExecutionPausedEvent, wf.ID),
			ExecutionID: execution.ID,
			WaitReason:  execution.WaitReason,
		})
	default:
		finished := time.Now().UTC()
		execution.Status = models.ExecutionFailed
		execution.Error = runErr.Error()
		execution.FinishedAt = &finished

		s.publishEvent(ctx, execution.ID, events.ExecutionFailed{
			BaseEvent:   s.baseEvent(events.ExecutionFailedEvent, wf.ID),
			ExecutionID: execution.ID,
			Error:       runErr.Error(),
			DurationMs:  durationMs,
		})
	}

	if err := s.persist.ExecutionRepository().UpdateExecution(ctx, execution); err != nil {
		return err
	}

	// A pause parks the execution; the job itself is done.
	if runErr == nil || workflow.IsPause(runErr) {
		return nil
	}

	return runErr
}

// Package services provides the execution facade: synchronous runs inside a
// caller's request, queued durable runs, and pause/resume control.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/strandworks/strand/pkg/eventbus"
	"github.com/strandworks/strand/pkg/events"
	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/persistence"
	"github.com/strandworks/strand/pkg/queue"
	"github.com/strandworks/strand/pkg/workflow"
)

const defaultSyncTimeout = 30 * time.Second
const defaultStepAttempts = 3
const defaultStepBackoff = time.Second

// Execution is the facade over the workflow executor, the queue and the
// execution store. One instance is shared by the API handlers, the worker
// and the agent's run_workflow tool.
type Execution struct {
	persist     persistence.Persistence
	executor    *workflow.Executor
	jobs        queue.Queue
	bus         eventbus.EventPublisher
	agents      *Agents
	logger      *slog.Logger
	syncTimeout time.Duration
}

type Option func(*Execution)

// WithSyncTimeout sets the wall-clock budget for synchronous runs.
func WithSyncTimeout(d time.Duration) Option {
	return func(e *Execution) {
		if d > 0 {
			e.syncTimeout = d
		}
	}
}

// WithEventBus publishes execution lifecycle events. Publishing is
// best-effort and never fails an execution.
func WithEventBus(bus eventbus.EventPublisher) Option {
	return func(e *Execution) {
		e.bus = bus
	}
}

// WithAgents routes queued agent runs to the agent service.
func WithAgents(agents *Agents) Option {
	return func(e *Execution) {
		e.agents = agents
	}
}

func NewExecution(persist persistence.Persistence, executor *workflow.Executor, jobs queue.Queue, logger *slog.Logger, opts ...Option) *Execution {
	e := &Execution{
		persist:     persist,
		executor:    executor,
		jobs:        jobs,
		logger:      logger.With("module", "execution_service"),
		syncTimeout: defaultSyncTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ExecuteWorkflowSync runs a workflow to completion inside the caller's
// request, against an isolated context seeded from the initial data. On
// timeout the run is cancelled and abandoned: whatever the in-flight node
// produces afterwards is never observed.
//
// Implements the runner contract of the agent's run_workflow tool, so
// conversation and agent memory snapshots thread into the context.
func (s *Execution) ExecuteWorkflowSync(ctx context.Context, workflowID, userID string, initial, memory, agentMemory models.Object) (models.Object, error) {
	wf, err := s.persist.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("workflow %s failed validation: %w", workflowID, err)
	}

	wctx := models.NewWorkflowContext(uuid.New().String(), workflowID, userID, initial)
	wctx.Memory = memory.Clone()
	wctx.AgentMemory = agentMemory.Clone()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- s.executor.Run(runCtx, wf, wctx, workflow.NewDirectStepRunner())
	}()

	timer := time.NewTimer(s.syncTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}

		return wctx.Data, nil
	case <-timer.C:
		cancel()

		s.logger.WarnContext(ctx, "Synchronous run timed out",
			"workflow_id", workflowID,
			"timeout", s.syncTimeout,
		)

		s.publishEvent(ctx, wctx.ID, events.ExecutionTimeout{
			BaseEvent:   s.baseEvent(events.ExecutionTimeoutEvent, workflowID),
			ExecutionID: wctx.ID,
			TimeoutMs:   s.syncTimeout.Milliseconds(),
		})

		return nil, &SyncTimeoutError{WorkflowID: workflowID, Timeout: s.syncTimeout}
	}
}

// EnqueueWorkflowExecution submits a durable workflow run and returns the
// job id for tracking.
func (s *Execution) EnqueueWorkflowExecution(ctx context.Context, workflowID, userID string, payload models.Object, triggeredBy models.TriggerSource) (string, error) {
	wf, err := s.persist.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return "", err
	}

	if err := wf.Validate(); err != nil {
		return "", fmt.Errorf("workflow %s failed validation: %w", workflowID, err)
	}

	job := &models.QueuedJob{
		Kind:        models.JobWorkflowRun,
		WorkflowID:  workflowID,
		UserID:      userID,
		Payload:     payload.Clone(),
		TriggeredBy: triggeredBy,
	}

	jobID, err := s.jobs.Enqueue(ctx, job)
	if err != nil {
		return "", err
	}

	s.publishEvent(ctx, jobID, events.JobEnqueued{
		BaseEvent:   s.baseEvent(events.JobEnqueuedEvent, workflowID),
		JobID:       jobID,
		Kind:        string(models.JobWorkflowRun),
		TriggeredBy: string(triggeredBy),
	})

	return jobID, nil
}

// ResumeWorkflow merges late-arriving data into a waiting execution and
// queues it to continue. Completed nodes never re-run.
func (s *Execution) ResumeWorkflow(ctx context.Context, executionID string, mergeData models.Object) (string, error) {
	execution, err := s.persist.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return "", err
	}

	if execution.Status != models.ExecutionWaiting {
		return "", fmt.Errorf("%w: execution %s is %s", ErrExecutionNotWaiting, executionID, execution.Status)
	}

	job := &models.QueuedJob{
		Kind:        models.JobWorkflowResume,
		WorkflowID:  execution.WorkflowID,
		ExecutionID: executionID,
		UserID:      execution.UserID,
		Payload:     mergeData.Clone(),
		TriggeredBy: models.TriggeredWebhook,
	}

	jobID, err := s.jobs.Enqueue(ctx, job)
	if err != nil {
		return "", err
	}

	s.publishEvent(ctx, executionID, events.ExecutionResumed{
		BaseEvent:   s.baseEvent(events.ExecutionResumedEvent, execution.WorkflowID),
		ExecutionID: executionID,
		MergedData:  mergeData,
	})

	return jobID, nil
}

// ExecutionStatus returns the current durable record of an execution.
func (s *Execution) ExecutionStatus(ctx context.Context, executionID string) (*models.Execution, error) {
	return s.persist.ExecutionRepository().ExecutionByID(ctx, executionID)
}

func (s *Execution) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

func (s *Execution) publishEvent(ctx context.Context, key string, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Publish(ctx, key, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

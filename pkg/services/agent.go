package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/strandworks/strand/pkg/agent"
	"github.com/strandworks/strand/pkg/eventbus"
	"github.com/strandworks/strand/pkg/events"
	"github.com/strandworks/strand/pkg/middleware"
	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/persistence"
	"github.com/strandworks/strand/pkg/protocol"
	"github.com/strandworks/strand/pkg/queue"
	"github.com/strandworks/strand/pkg/registry"
	"github.com/strandworks/strand/pkg/tools"
)

const defaultAgentMaxSteps = 20
const defaultMonthlyCostLimitUSD = 100.0
const defaultCostCacheTTL = time.Minute
const defaultKeepRecentMessages = 20

// Agents runs agent executions over the graph runtime with the full policy
// pipeline registered: cost guard and context compression before the LLM,
// safe mode before tools, redaction, tracing and step logging after.
type Agents struct {
	llm     protocol.LLMClient
	reg     *registry.Registry
	persist persistence.Persistence
	jobs    queue.Queue
	bus     eventbus.EventPublisher
	logger  *slog.Logger

	pipeline     *middleware.Pipeline
	runtimeOpts  []agent.Option
	costLimitUSD float64
	blockedTools []string
	maxSteps     int
}

type AgentOption func(*Agents)

// WithMonthlyCostLimit sets the workspace spend cap the cost guard enforces.
func WithMonthlyCostLimit(limitUSD float64) AgentOption {
	return func(a *Agents) {
		if limitUSD > 0 {
			a.costLimitUSD = limitUSD
		}
	}
}

// WithBlockedTools names the tools safe mode refuses to invoke.
func WithBlockedTools(names []string) AgentOption {
	return func(a *Agents) {
		a.blockedTools = names
	}
}

// WithMaxSteps caps the reasoning loop per run.
func WithMaxSteps(n int) AgentOption {
	return func(a *Agents) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithAgentEventBus publishes run-finished events. Best effort, like the
// workflow lifecycle events.
func WithAgentEventBus(bus eventbus.EventPublisher) AgentOption {
	return func(a *Agents) {
		a.bus = bus
	}
}

// WithAgentSystemPrompt sets the system prompt sent on every LLM turn.
func WithAgentSystemPrompt(prompt string) AgentOption {
	return func(a *Agents) {
		a.runtimeOpts = append(a.runtimeOpts, agent.WithSystemPrompt(prompt))
	}
}

// WithRunEvaluation scores completed runs with an LLM judge over the same
// client.
func WithRunEvaluation() AgentOption {
	return func(a *Agents) {
		a.runtimeOpts = append(a.runtimeOpts, agent.WithEvaluator(agent.NewLLMEvaluator(a.llm)))
	}
}

func NewAgents(llm protocol.LLMClient, reg *registry.Registry, persist persistence.Persistence, jobs queue.Queue, logger *slog.Logger, opts ...AgentOption) *Agents {
	a := &Agents{
		llm:          llm,
		reg:          reg,
		persist:      persist,
		jobs:         jobs,
		logger:       logger.With("module", "agent_service"),
		costLimitUSD: defaultMonthlyCostLimitUSD,
		maxSteps:     defaultAgentMaxSteps,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.pipeline = middleware.NewPipeline(logger)

	guard := middleware.NewCostGuard(persist.UsageRepository(), a.costLimitUSD, defaultCostCacheTTL)
	a.pipeline.Register(guard.Middleware(10))
	a.pipeline.Register(middleware.NewContextCompressor(defaultKeepRecentMessages).Middleware(20))

	a.pipeline.Register(middleware.NewSafeMode(a.blockedTools).Middleware(10))

	redactor := middleware.NewRedactor()
	a.pipeline.Register(redactor.LLMMiddleware(10))
	a.pipeline.Register(redactor.ToolMiddleware(10))

	tracer := middleware.NewTracer(persist.UsageRepository())
	a.pipeline.Register(tracer.LLMMiddleware(20))
	a.pipeline.Register(tracer.ToolMiddleware(20))

	a.pipeline.Register(middleware.NewStepLogger(logger).Middleware(10))

	return a
}

// ExecuteAgent runs one agent conversation to a terminal result. Policy
// aborts (cost limit, safe mode) come back as typed errors so callers can
// tell them apart from ordinary run failures; everything else lands on the
// structured result.
func (a *Agents) ExecuteAgent(ctx context.Context, rc models.RunContext, prompt string) (*models.ExecutionResult, error) {
	state := &models.AgentState{
		ConversationID: uuid.New().String(),
		AgentID:        rc.AgentID,
		UserID:         rc.UserID,
		WorkspaceID:    rc.WorkspaceID,
		MaxSteps:       a.maxSteps,
	}
	state.AppendMessage(models.RoleUser, prompt)

	// The gateway snapshots the registry per run, so tools registered after
	// startup (run_workflow in particular) are always visible.
	rt := agent.NewRuntime(a.llm,
		tools.NewGateway(a.logger, a.reg.Tools()...),
		a.pipeline, a.logger, a.runtimeOpts...)

	result := rt.Execute(ctx, state, rc)

	a.publishFinished(ctx, rc, result)

	if result.Status == models.StatusFailed &&
		(middleware.IsCostLimitExceeded(result.Cause) || middleware.IsSafeModeBlocked(result.Cause)) {
		return nil, result.Cause
	}

	return result, nil
}

// EnqueueAgentExecution submits a durable agent run and returns the job id.
func (a *Agents) EnqueueAgentExecution(ctx context.Context, rc models.RunContext, prompt string) (string, error) {
	job := &models.QueuedJob{
		Kind:    models.JobAgentRun,
		AgentID: rc.AgentID,
		UserID:  rc.UserID,
		Payload: models.Object{
			"prompt":       models.String(prompt),
			"workspace_id": models.String(rc.WorkspaceID),
			"model":        models.String(rc.Model),
			"temperature":  models.Number(rc.Temperature),
			"safe_mode":    models.Bool(rc.SafeMode),
		},
		TriggeredBy: models.TriggeredManual,
	}

	jobID, err := a.jobs.Enqueue(ctx, job)
	if err != nil {
		return "", err
	}

	a.publishEvent(ctx, jobID, events.JobEnqueued{
		BaseEvent:   a.baseEvent(events.JobEnqueuedEvent),
		JobID:       jobID,
		Kind:        string(models.JobAgentRun),
		TriggeredBy: string(models.TriggeredManual),
	})

	return jobID, nil
}

// RunJob executes a queued agent run. Failures return to the queue for
// retry; the dead set is the backstop.
func (a *Agents) RunJob(ctx context.Context, job *models.QueuedJob) error {
	rc := models.RunContext{
		AgentID:     job.AgentID,
		UserID:      job.UserID,
		WorkspaceID: job.Payload["workspace_id"].StringVal(),
		Model:       job.Payload["model"].StringVal(),
		Temperature: job.Payload["temperature"].NumberVal(),
		SafeMode:    job.Payload["safe_mode"].BoolVal(),
	}

	result, err := a.ExecuteAgent(ctx, rc, job.Payload["prompt"].StringVal())
	if err != nil {
		return err
	}

	if result.Status == models.StatusFailed {
		return fmt.Errorf("agent run failed: %s", result.Error)
	}

	return nil
}

func (a *Agents) publishFinished(ctx context.Context, rc models.RunContext, result *models.ExecutionResult) {
	a.publishEvent(ctx, rc.AgentID, events.AgentRunFinished{
		BaseEvent:   a.baseEvent(events.AgentRunFinishedEvent),
		AgentID:     rc.AgentID,
		UserID:      rc.UserID,
		WorkspaceID: rc.WorkspaceID,
		Status:      result.Status,
		TotalSteps:  result.TotalSteps,
		Usage:       result.Usage,
		ToolStats:   result.ToolStats,
		DurationMs:  result.LatencyMs,
	})
}

func (a *Agents) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

func (a *Agents) publishEvent(ctx context.Context, key string, event eventbus.Event) {
	if a.bus == nil {
		return
	}

	if err := a.bus.Publish(ctx, key, event); err != nil {
		a.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

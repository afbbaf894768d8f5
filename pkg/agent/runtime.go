package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/strandworks/strand/pkg/middleware"
	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/protocol"
)

// Runtime drives agents through a bounded reasoning loop. It is safe to share
// one Runtime across concurrent executions; all per-run state lives on the
// Run object created inside Execute.
type Runtime struct {
	graph        *Graph
	llm          protocol.LLMClient
	gateway      protocol.ToolGateway
	pipeline     *middleware.Pipeline
	logger       *slog.Logger
	evaluator    Evaluator
	systemPrompt string
}

// Option configures the runtime.
type Option func(*Runtime)

// WithEvaluator enables post-completion evaluation of runs.
func WithEvaluator(evaluator Evaluator) Option {
	return func(rt *Runtime) { rt.evaluator = evaluator }
}

// WithSystemPrompt sets the system prompt sent on every LLM turn.
func WithSystemPrompt(prompt string) Option {
	return func(rt *Runtime) { rt.systemPrompt = prompt }
}

// WithGraph replaces the default reasoning graph.
func WithGraph(graph *Graph) Option {
	return func(rt *Runtime) { rt.graph = graph }
}

// NewRuntime creates a runtime over the given collaborators.
func NewRuntime(llm protocol.LLMClient, gateway protocol.ToolGateway, pipeline *middleware.Pipeline, logger *slog.Logger, opts ...Option) *Runtime {
	rt := &Runtime{
		graph:    DefaultGraph(),
		llm:      llm,
		gateway:  gateway,
		pipeline: pipeline,
		logger:   logger.With("module", "agent_runtime"),
	}

	for _, opt := range opts {
		opt(rt)
	}

	return rt
}

// Run bundles the per-execution collaborators handed to node behaviors.
type Run struct {
	rt  *Runtime
	rc  models.RunContext
	acc *Accumulator
}

// Accumulator exposes the run's monotonic counters to behaviors.
func (r *Run) Accumulator() *Accumulator {
	return r.acc
}

// Execute drives the agent from its current node until the terminal node, the
// step budget, an error, or caller interruption. A structured result with
// status and accumulated totals is always produced; raw errors never escape
// as the sole failure signal.
func (rt *Runtime) Execute(ctx context.Context, state *models.AgentState, rc models.RunContext) *models.ExecutionResult {
	started := time.Now()
	run := &Run{rt: rt, rc: rc, acc: NewAccumulator()}

	if state.CurrentNodeID == "" {
		state.CurrentNodeID = rt.graph.Entry()
	}

	var stepErr error

	for {
		// Caller-driven interruption is checked between steps and maps to a
		// distinct terminal status, not to failed.
		if err := ctx.Err(); err != nil {
			return rt.interrupted(ctx, state, run, started)
		}

		if state.CurrentNodeID == NodeEnd {
			break
		}

		// Budget exhaustion is not an error: the result is completed,
		// truncated at the step cap.
		if state.StepsExhausted() {
			break
		}

		behavior, ok := rt.graph.Node(state.CurrentNodeID)
		if !ok {
			stepErr = fmt.Errorf("agent graph has no node %q", state.CurrentNodeID)

			break
		}

		stepData := &middleware.HookData{
			Step:     state.CurrentStep,
			NodeID:   state.CurrentNodeID,
			State:    state,
			Messages: state.Messages,
		}

		if err := rt.pipeline.Run(ctx, middleware.HookBeforeStep, stepData, rc); err != nil {
			stepErr = err

			break
		}

		if err := behavior.Step(ctx, run, state); err != nil {
			if ctx.Err() != nil {
				return rt.interrupted(ctx, state, run, started)
			}

			stepErr = err

			break
		}

		stepData.Messages = state.Messages
		rt.pipeline.RunObserved(ctx, middleware.HookAfterStep, stepData, rc)

		state.CurrentNodeID = rt.graph.Next(state.CurrentNodeID, state)
		state.CurrentStep++
	}

	if stepErr != nil {
		rt.pipeline.RunObserved(ctx, middleware.HookOnError, &middleware.HookData{
			Step:   state.CurrentStep,
			NodeID: state.CurrentNodeID,
			State:  state,
			Err:    stepErr,
		}, rc)

		return rt.result(models.StatusFailed, state, run, started, stepErr)
	}

	rt.pipeline.RunObserved(ctx, middleware.HookOnCompletion, &middleware.HookData{
		Step:   state.CurrentStep,
		NodeID: state.CurrentNodeID,
		State:  state,
	}, rc)

	result := rt.result(models.StatusCompleted, state, run, started, nil)

	if rt.evaluator != nil {
		evaluation, err := rt.evaluator.Evaluate(ctx, state, rc)
		if err != nil {
			rt.logger.WarnContext(ctx, "run evaluation failed", "agent_id", rc.AgentID, "error", err)
		} else {
			result.Evaluation = evaluation
		}
	}

	return result
}

func (rt *Runtime) interrupted(ctx context.Context, state *models.AgentState, run *Run, started time.Time) *models.ExecutionResult {
	status := models.StatusCancelled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		status = models.StatusTimeout
	}

	return rt.result(status, state, run, started, ctx.Err())
}

// result builds the terminal record. Totals accumulated before a failure are
// preserved: failures never discard prior accounting.
func (rt *Runtime) result(status models.ExecutionStatus, state *models.AgentState, run *Run, started time.Time, err error) *models.ExecutionResult {
	usage, tools := run.acc.Snapshot()

	result := &models.ExecutionResult{
		Status:     status,
		FinalState: state,
		TotalSteps: state.CurrentStep,
		LatencyMs:  time.Since(started).Milliseconds(),
		Usage:      usage,
		ToolStats:  tools,
		FinishedAt: time.Now().UTC(),
	}

	if err != nil {
		result.Error = err.Error()
		result.Cause = err
	}

	return result
}

package agent

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandworks/strand/pkg/middleware"
	"github.com/strandworks/strand/pkg/models"
)

// scriptedLLM replays canned replies in order, repeating the last one.
type scriptedLLM struct {
	replies []string
	calls   int
	err     error
}

func (s *scriptedLLM) Send(_ context.Context, _ []models.Message, _ string, _ float64) (*models.LLMReply, error) {
	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	idx := s.calls - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}

	return &models.LLMReply{Text: s.replies[idx], TokensIn: 100, TokensOut: 50}, nil
}

type fakeGateway struct {
	calls   int
	failing bool
}

func (g *fakeGateway) Known(_ string) bool { return true }

func (g *fakeGateway) Invoke(_ context.Context, name string, input models.Object, _ models.RunContext) *models.ToolCallResult {
	g.calls++

	result := &models.ToolCallResult{Name: name, Input: input, LatencyMs: 1}
	if g.failing {
		result.Error = "tool exploded"
	} else {
		result.Success = true
		result.Output = models.Object{"ok": models.Bool(true)}
	}

	return result
}

func newState(maxSteps int) *models.AgentState {
	return &models.AgentState{
		AgentID:     "agent-1",
		WorkspaceID: "ws-1",
		MaxSteps:    maxSteps,
		Messages:    []models.Message{{Role: models.RoleUser, Content: "do the thing"}},
	}
}

func newRuntime(client *scriptedLLM, gateway *fakeGateway, pipeline *middleware.Pipeline, opts ...Option) *Runtime {
	if pipeline == nil {
		pipeline = middleware.NewPipeline(slog.Default())
	}

	return NewRuntime(client, gateway, pipeline, slog.Default(), opts...)
}

func TestExecuteFinalAnswerCompletes(t *testing.T) {
	client := &scriptedLLM{replies: []string{"All done."}}
	rt := newRuntime(client, &fakeGateway{}, nil)

	result := rt.Execute(context.Background(), newState(10), models.RunContext{Model: "gpt-4o-mini"})

	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 150, result.Usage.TokensIn+result.Usage.TokensOut)
	assert.Greater(t, result.Usage.CostUSD, 0.0)
	assert.Equal(t, "All done.", result.FinalState.Metadata["final_answer"].StringVal())
}

func TestExecuteToolLoop(t *testing.T) {
	client := &scriptedLLM{replies: []string{
		`TOOL: lookup {"q": "answer"}`,
		"Found it.",
	}}
	gateway := &fakeGateway{}
	rt := newRuntime(client, gateway, nil)

	result := rt.Execute(context.Background(), newState(20), models.RunContext{})

	require.Equal(t, models.StatusCompleted, result.Status)
	assert.Equal(t, 1, gateway.calls)
	assert.Equal(t, models.ToolStats{Attempted: 1, Succeeded: 1}, result.ToolStats)
	require.Len(t, result.FinalState.ToolResults, 1)
	assert.True(t, result.FinalState.ToolResults[0].Success)
}

func TestExecuteMaxStepsTruncatesAsCompleted(t *testing.T) {
	// Reasoning loops back to itself forever; the cap must end the run as
	// completed, not failed.
	graph := NewGraph().
		AddNode(NodeReasoning, BehaviorFunc(noop)).
		SetEntry(NodeReasoning).
		AddEdge(NodeReasoning, NodeReasoning, nil)

	rt := newRuntime(&scriptedLLM{replies: []string{"unused"}}, &fakeGateway{}, nil, WithGraph(graph))

	result := rt.Execute(context.Background(), newState(3), models.RunContext{})

	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Equal(t, 3, result.TotalSteps)
	assert.LessOrEqual(t, result.TotalSteps, result.FinalState.MaxSteps)
}

func TestExecuteNodeErrorYieldsFailedWithAccounting(t *testing.T) {
	boom := errors.New("provider down")
	client := &scriptedLLM{replies: []string{`TOOL: lookup {}`, "unused"}}
	gateway := &fakeGateway{}

	// First turn succeeds (one tool call accounted), then the LLM dies.
	graph := DefaultGraph()
	rt := newRuntime(client, gateway, nil, WithGraph(graph))

	state := newState(20)

	// Fail on the second LLM call.
	stepped := 0
	graph.AddNode(NodeObservation, BehaviorFunc(func(_ context.Context, _ *Run, _ *models.AgentState) error {
		stepped++
		client.err = boom

		return nil
	}))

	result := rt.Execute(context.Background(), state, models.RunContext{})

	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "provider down")
	// Accounting from before the failure is preserved.
	assert.Equal(t, 1, result.ToolStats.Attempted)
	assert.Positive(t, result.Usage.TokensIn)
	assert.Equal(t, 1, stepped)
}

func TestExecuteOnErrorHookObserved(t *testing.T) {
	pipeline := middleware.NewPipeline(slog.Default())

	var sawError error

	pipeline.Register(middleware.Middleware{
		ID: "error_watch", Hook: middleware.HookOnError, Order: 1,
		Handler: func(_ context.Context, data *middleware.HookData, _ models.RunContext) error {
			sawError = data.Err

			return nil
		},
	})

	client := &scriptedLLM{err: errors.New("dead on arrival")}
	rt := newRuntime(client, &fakeGateway{}, pipeline)

	result := rt.Execute(context.Background(), newState(5), models.RunContext{})

	assert.Equal(t, models.StatusFailed, result.Status)
	require.Error(t, sawError)
	assert.Contains(t, sawError.Error(), "dead on arrival")
}

func TestExecuteCancelledStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rt := newRuntime(&scriptedLLM{replies: []string{"unused"}}, &fakeGateway{}, nil)

	result := rt.Execute(ctx, newState(5), models.RunContext{})

	assert.Equal(t, models.StatusCancelled, result.Status)
}

func TestExecuteTimeoutStatus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	time.Sleep(time.Millisecond)

	rt := newRuntime(&scriptedLLM{replies: []string{"unused"}}, &fakeGateway{}, nil)

	result := rt.Execute(ctx, newState(5), models.RunContext{})

	assert.Equal(t, models.StatusTimeout, result.Status)
}

func TestExecuteSafeModeBlocksToolBeforeGateway(t *testing.T) {
	pipeline := middleware.NewPipeline(slog.Default())
	pipeline.Register(middleware.NewSafeMode([]string{"send_email"}).Middleware(10))

	client := &scriptedLLM{replies: []string{`TOOL: send_email {"to": "x"}`}}
	gateway := &fakeGateway{}
	rt := newRuntime(client, gateway, pipeline)

	result := rt.Execute(context.Background(), newState(10), models.RunContext{SafeMode: true})

	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "safe mode")
	// The gateway must show zero calls for the blocked attempt.
	assert.Zero(t, gateway.calls)
	assert.Zero(t, result.ToolStats.Attempted)
}

func TestExecuteCostGuardAbortsBeforeLLM(t *testing.T) {
	pipeline := middleware.NewPipeline(slog.Default())
	pipeline.Register(middleware.NewCostGuard(
		overBudgetReader{},
		10.0,
		time.Minute,
	).Middleware(10))

	client := &scriptedLLM{replies: []string{"unused"}}
	rt := newRuntime(client, &fakeGateway{}, pipeline)

	result := rt.Execute(context.Background(), newState(10), models.RunContext{WorkspaceID: "ws-over"})

	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "cost limit exceeded")
	// The LLM capability is never called once the guard trips.
	assert.Zero(t, client.calls)
}

type overBudgetReader struct{}

func (overBudgetReader) MonthlyUsage(_ context.Context, _, _ string) (models.Usage, error) {
	return models.Usage{CostUSD: 999}, nil
}

func TestUsageMonotonicAcrossSteps(t *testing.T) {
	client := &scriptedLLM{replies: []string{
		`TOOL: lookup {}`,
		`TOOL: lookup {}`,
		"done",
	}}
	gateway := &fakeGateway{}

	rt := newRuntime(client, gateway, nil)
	result := rt.Execute(context.Background(), newState(30), models.RunContext{})

	require.Equal(t, models.StatusCompleted, result.Status)
	assert.Equal(t, 3*150, result.Usage.TokensIn+result.Usage.TokensOut)
	assert.Equal(t, models.ToolStats{Attempted: 2, Succeeded: 2}, result.ToolStats)
}

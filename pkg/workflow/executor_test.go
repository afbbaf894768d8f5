package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/protocol"
)

// recordingExecutor appends its node id to the context's visited list.
type recordingExecutor struct {
	id   string
	fail bool
}

func (e *recordingExecutor) ID() string   { return e.id }
func (e *recordingExecutor) Type() string { return "record" }

func (e *recordingExecutor) Execute(_ context.Context, wctx *models.WorkflowContext) (models.Object, error) {
	if e.fail {
		return nil, errors.New("executor blew up")
	}

	visited := wctx.Data["visited"].ListVal()
	visited = append(visited, models.String(e.id))

	return models.Object{"visited": models.ListValue(visited)}, nil
}

type fakeRegistry struct {
	mu        sync.Mutex
	created   []string
	failNodes map[string]bool
	pauseAt   string
	schemas   map[string]map[string]any
	hang      bool
}

func (r *fakeRegistry) CreateNode(_ context.Context, nodeType, id string, _ map[string]any) (protocol.NodeExecutor, error) {
	if nodeType == "missing" {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	r.mu.Lock()
	r.created = append(r.created, id)
	r.mu.Unlock()

	if r.pauseAt == id {
		return pausingExecutor{id: id}, nil
	}

	if r.hang {
		return hangingExecutor{id: id}, nil
	}

	return &recordingExecutor{id: id, fail: r.failNodes[id]}, nil
}

func (r *fakeRegistry) NodeSchema(nodeType string) map[string]any {
	return r.schemas[nodeType]
}

type pausingExecutor struct{ id string }

func (e pausingExecutor) ID() string   { return e.id }
func (e pausingExecutor) Type() string { return "pausing" }

func (e pausingExecutor) Execute(_ context.Context, _ *models.WorkflowContext) (models.Object, error) {
	return nil, &PauseError{Reason: "waiting for meeting bot"}
}

type hangingExecutor struct{ id string }

func (e hangingExecutor) ID() string   { return e.id }
func (e hangingExecutor) Type() string { return "hanging" }

func (e hangingExecutor) Execute(ctx context.Context, _ *models.WorkflowContext) (models.Object, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishNodeStatus(_ context.Context, _, nodeID string, status protocol.NodeStatus, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, nodeID+":"+string(status))
}

func linearWorkflow(ids ...string) *models.Workflow {
	wf := &models.Workflow{ID: "wf-1", Name: "linear"}

	for i, id := range ids {
		wf.Nodes = append(wf.Nodes, &models.WorkflowNode{
			ID: id, Type: "record", Category: models.CategoryAction, Enabled: true,
		})

		if i > 0 {
			wf.Edges = append(wf.Edges, &models.WorkflowEdge{
				ID: fmt.Sprintf("e%d", i), Source: ids[i-1], Target: id,
			})
		}
	}

	return wf
}

func seededContext() *models.WorkflowContext {
	return models.NewWorkflowContext("exec-1", "wf-1", "user-1", models.Object{
		"x":       models.Number(1),
		"visited": models.ListValue(nil),
	})
}

func newTestExecutor(reg *fakeRegistry, pub protocol.StatusPublisher) *Executor {
	return NewExecutor(reg, pub, slog.Default())
}

func TestRunLinearWorkflowInOrder(t *testing.T) {
	reg := &fakeRegistry{}
	executor := newTestExecutor(reg, nil)
	wctx := seededContext()

	err := executor.Run(context.Background(), linearWorkflow("A", "B", "C"), wctx, NewDirectStepRunner())

	require.NoError(t, err)
	assert.Equal(t, float64(1), wctx.Data["x"].NumberVal())

	visited := wctx.Data["visited"].ListVal()
	require.Len(t, visited, 3)
	assert.Equal(t, "A", visited[0].StringVal())
	assert.Equal(t, "B", visited[1].StringVal())
	assert.Equal(t, "C", visited[2].StringVal())
	assert.Equal(t, []string{"A", "B", "C"}, wctx.CompletedNodes)
}

func TestRunSkipsTriggerNodes(t *testing.T) {
	wf := linearWorkflow("A", "B")
	wf.Nodes = append([]*models.WorkflowNode{{
		ID: "hook", Type: "trigger:webhook", Category: models.CategoryTrigger, Enabled: true,
	}}, wf.Nodes...)
	wf.Edges = append(wf.Edges, &models.WorkflowEdge{ID: "te", Source: "hook", Target: "A"})

	reg := &fakeRegistry{}
	executor := newTestExecutor(reg, nil)
	wctx := seededContext()

	require.NoError(t, executor.Run(context.Background(), wf, wctx, NewDirectStepRunner()))
	assert.NotContains(t, reg.created, "hook")
	assert.Len(t, wctx.CompletedNodes, 2)
}

func TestRunCyclicGraphExecutesNothing(t *testing.T) {
	wf := linearWorkflow("A", "B")
	wf.Edges = append(wf.Edges, &models.WorkflowEdge{ID: "back", Source: "B", Target: "A"})

	reg := &fakeRegistry{}
	executor := newTestExecutor(reg, nil)

	err := executor.Run(context.Background(), wf, seededContext(), NewDirectStepRunner())

	require.Error(t, err)
	assert.True(t, IsCyclicGraph(err))
	assert.Empty(t, reg.created)
}

func TestRunUnknownNodeType(t *testing.T) {
	wf := linearWorkflow("A")
	wf.Nodes[0].Type = "missing"

	executor := newTestExecutor(&fakeRegistry{}, nil)

	err := executor.Run(context.Background(), wf, seededContext(), NewDirectStepRunner())

	require.Error(t, err)
	assert.True(t, IsUnknownNodeType(err))

	var typeErr *UnknownNodeTypeError

	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "A", typeErr.NodeID)
}

func TestRunAbortsRemainderOnNodeFailure(t *testing.T) {
	reg := &fakeRegistry{failNodes: map[string]bool{"B": true}}
	pub := &recordingPublisher{}
	executor := newTestExecutor(reg, pub)
	wctx := seededContext()

	err := executor.Run(context.Background(), linearWorkflow("A", "B", "C"), wctx, NewDirectStepRunner())

	require.Error(t, err)

	var nodeErr *NodeExecutionError

	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "B", nodeErr.NodeID)

	// A completed, B failed, C never ran.
	assert.Equal(t, []string{"A", "B"}, reg.created)
	assert.Equal(t, []string{"A"}, wctx.CompletedNodes)
	assert.Contains(t, pub.events, "B:error")
	assert.NotContains(t, pub.events, "C:loading")
}

func TestRunVisitsEachNodeAtMostOnce(t *testing.T) {
	reg := &fakeRegistry{}
	executor := newTestExecutor(reg, nil)
	wctx := seededContext()
	wf := linearWorkflow("A", "B", "C")

	require.NoError(t, executor.Run(context.Background(), wf, wctx, NewDirectStepRunner()))

	// Running again over the same context re-executes nothing.
	require.NoError(t, executor.Run(context.Background(), wf, wctx, NewDirectStepRunner()))
	assert.Equal(t, []string{"A", "B", "C"}, reg.created)
}

func TestRunPausePreservesSnapshot(t *testing.T) {
	reg := &fakeRegistry{pauseAt: "B"}
	executor := newTestExecutor(reg, nil)
	wctx := seededContext()

	err := executor.Run(context.Background(), linearWorkflow("A", "B", "C"), wctx, NewDirectStepRunner())

	require.Error(t, err)
	assert.True(t, IsPause(err))
	assert.Equal(t, []string{"A"}, wctx.CompletedNodes)
}

func TestRunPublishesNodeStatus(t *testing.T) {
	pub := &recordingPublisher{}
	executor := newTestExecutor(&fakeRegistry{}, pub)

	require.NoError(t, executor.Run(context.Background(), linearWorkflow("A"), seededContext(), NewDirectStepRunner()))
	assert.Equal(t, []string{"A:loading", "A:success"}, pub.events)
}

func TestRunSchemaValidation(t *testing.T) {
	reg := &fakeRegistry{schemas: map[string]map[string]any{
		"record": {
			"type":       "object",
			"properties": map[string]any{"level": map[string]any{"type": "string"}},
			"required":   []any{"level"},
		},
	}}
	executor := newTestExecutor(reg, nil)

	wf := linearWorkflow("A")

	err := executor.Run(context.Background(), wf, seededContext(), NewDirectStepRunner())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidNodeConfig)
	assert.Empty(t, reg.created)

	wf.Nodes[0].Config = map[string]any{"level": "info"}
	require.NoError(t, executor.Run(context.Background(), wf, seededContext(), NewDirectStepRunner()))
}

func TestResumeContextMerge(t *testing.T) {
	execution := &models.Execution{
		ID:     "exec-1",
		Status: models.ExecutionWaiting,
		CurrentContext: &models.WorkflowContext{
			ID:         "exec-1",
			WorkflowID: "wf-1",
			Data: models.Object{
				"x": models.Number(1),
				"meeting": models.ObjectValue(models.Object{
					"id": models.String("m-1"),
				}),
			},
			CompletedNodes: []string{"A"},
		},
	}

	wctx, err := ResumeContext(execution, models.Object{
		"meeting": models.ObjectValue(models.Object{
			"transcript": models.String("hello world"),
		}),
	})

	require.NoError(t, err)
	assert.Equal(t, float64(1), wctx.Data["x"].NumberVal())

	meeting := wctx.Data["meeting"].ObjectVal()
	assert.Equal(t, "m-1", meeting["id"].StringVal())
	assert.Equal(t, "hello world", meeting["transcript"].StringVal())
	assert.Equal(t, []string{"A"}, wctx.CompletedNodes)
}

func TestResumeContextEmptyMergeIsIdentity(t *testing.T) {
	snapshot := &models.WorkflowContext{
		ID:   "exec-1",
		Data: models.Object{"x": models.Number(1), "s": models.String("keep")},
	}
	execution := &models.Execution{ID: "exec-1", CurrentContext: snapshot}

	wctx, err := ResumeContext(execution, models.Object{})

	require.NoError(t, err)
	assert.True(t, models.ObjectValue(wctx.Data).Equal(models.ObjectValue(snapshot.Data)))
}

type memoryExecutionStore struct {
	mu      sync.Mutex
	updates int
}

func (s *memoryExecutionStore) UpdateExecution(_ context.Context, _ *models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updates++

	return nil
}

func TestDurableStepRunnerCachesCompletedSteps(t *testing.T) {
	execution := &models.Execution{ID: "exec-1"}
	store := &memoryExecutionStore{}
	runner := NewDurableStepRunner(execution, store, 3, time.Millisecond, slog.Default())

	calls := 0
	fn := func(_ context.Context) (models.Object, error) {
		calls++

		return models.Object{"n": models.Number(float64(calls))}, nil
	}

	first, err := runner.Run(context.Background(), "step-1", fn)
	require.NoError(t, err)

	second, err := runner.Run(context.Background(), "step-1", fn)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, models.ObjectValue(first).Equal(models.ObjectValue(second)))
	assert.Equal(t, 1, store.updates)
}

func TestDurableStepRunnerRetriesWithBackoff(t *testing.T) {
	execution := &models.Execution{ID: "exec-1"}
	runner := NewDurableStepRunner(execution, &memoryExecutionStore{}, 3, time.Millisecond, slog.Default())

	calls := 0
	fn := func(_ context.Context) (models.Object, error) {
		calls++

		if calls < 3 {
			return nil, errors.New("transient")
		}

		return models.Object{"done": models.Bool(true)}, nil
	}

	output, err := runner.Run(context.Background(), "flaky", fn)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, output["done"].BoolVal())
}

func TestDurableStepRunnerExhaustsAttempts(t *testing.T) {
	execution := &models.Execution{ID: "exec-1"}
	runner := NewDurableStepRunner(execution, &memoryExecutionStore{}, 2, time.Millisecond, slog.Default())

	_, err := runner.Run(context.Background(), "doomed", func(_ context.Context) (models.Object, error) {
		return nil, errors.New("permanent")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permanent")
}

func TestDurableStepRunnerDoesNotRetryPause(t *testing.T) {
	execution := &models.Execution{ID: "exec-1"}
	runner := NewDurableStepRunner(execution, &memoryExecutionStore{}, 5, time.Millisecond, slog.Default())

	calls := 0

	_, err := runner.Run(context.Background(), "waits", func(_ context.Context) (models.Object, error) {
		calls++

		return nil, &PauseError{Reason: "external event"}
	})

	assert.True(t, IsPause(err))
	assert.Equal(t, 1, calls)
}

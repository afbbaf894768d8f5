package tools

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandworks/strand/pkg/models"
)

type countingTool struct {
	name  string
	calls int
	fail  bool
}

func (t *countingTool) Name() string        { return t.name }
func (t *countingTool) Description() string { return "test tool" }
func (t *countingTool) SideEffecting() bool { return true }

func (t *countingTool) Execute(_ context.Context, input models.Object, _ models.RunContext) (models.Object, error) {
	t.calls++

	if t.fail {
		return nil, errors.New("upstream unavailable")
	}

	return models.Object{"echo": input["msg"]}, nil
}

func TestGatewayInvokeSuccess(t *testing.T) {
	tool := &countingTool{name: "echo"}
	gateway := NewGateway(slog.Default(), tool)

	result := gateway.Invoke(context.Background(), "echo", models.Object{"msg": models.String("hi")}, models.RunContext{})

	require.True(t, result.Success)
	assert.Equal(t, "hi", result.Output["echo"].StringVal())
	assert.Equal(t, 1, tool.calls)
	assert.GreaterOrEqual(t, result.LatencyMs, int64(0))
}

func TestGatewayInvokeFailureRecordedNotRaised(t *testing.T) {
	tool := &countingTool{name: "flaky", fail: true}
	gateway := NewGateway(slog.Default(), tool)

	result := gateway.Invoke(context.Background(), "flaky", models.Object{}, models.RunContext{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "upstream unavailable")
}

func TestGatewayUnknownTool(t *testing.T) {
	gateway := NewGateway(slog.Default())

	result := gateway.Invoke(context.Background(), "ghost", models.Object{}, models.RunContext{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown tool")
	assert.False(t, gateway.Known("ghost"))
}

func TestRememberToolStoresPerAgent(t *testing.T) {
	tool := NewRememberTool()

	_, err := tool.Execute(context.Background(), models.Object{
		"key":   models.String("favorite"),
		"value": models.String("blue"),
	}, models.RunContext{AgentID: "a1"})
	require.NoError(t, err)

	memory := tool.Memory("a1")
	assert.Equal(t, "blue", memory["favorite"].StringVal())
	assert.Nil(t, tool.Memory("other"))
}

func TestRememberToolRequiresKey(t *testing.T) {
	tool := NewRememberTool()

	_, err := tool.Execute(context.Background(), models.Object{
		"value": models.String("x"),
	}, models.RunContext{AgentID: "a1"})

	assert.Error(t, err)
}

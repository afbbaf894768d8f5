package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/protocol"
)

type mockExecutor struct {
	id string
}

func (m *mockExecutor) ID() string   { return m.id }
func (m *mockExecutor) Type() string { return "mock" }

func (m *mockExecutor) Execute(_ context.Context, _ *models.WorkflowContext) (models.Object, error) {
	return models.Object{"ok": models.Bool(true)}, nil
}

type mockFactory struct {
	created int
}

func (m *mockFactory) Create(_ context.Context, id string, _ map[string]any) (protocol.NodeExecutor, error) {
	m.created++

	return &mockExecutor{id: id}, nil
}

func (m *mockFactory) ID() string          { return "mock" }
func (m *mockFactory) Name() string        { return "Mock" }
func (m *mockFactory) Description() string { return "mock node" }

func (m *mockFactory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

func TestRegistryCreateNode(t *testing.T) {
	r := NewRegistry(slog.Default())
	factory := &mockFactory{}
	r.RegisterNode(factory)

	executor, err := r.CreateNode(context.Background(), "mock", "node-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "node-1", executor.ID())
	assert.Equal(t, 1, factory.created)
}

func TestRegistryCreateNodeUnknownType(t *testing.T) {
	r := NewRegistry(slog.Default())

	_, err := r.CreateNode(context.Background(), "nope", "node-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistryNodeSchema(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.RegisterNode(&mockFactory{})

	assert.Equal(t, map[string]any{"type": "object"}, r.NodeSchema("mock"))
	assert.Nil(t, r.NodeSchema("nope"))
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry(slog.Default())
	RegisterDefaults(r)

	cases := map[string]map[string]any{
		"trigger:webhook":  {"path": "/hooks/x"},
		"trigger:schedule": {"cron": "* * * * *"},
		"trigger:manual":   {},
		"transform":        {"expression": "{{ .data.x }}"},
		"http_request":     {"url": "https://example.com"},
		"log":              {"message": "hi"},
		"wait_for_event":   {"key": "recording"},
	}
	for nodeType, config := range cases {
		_, err := r.CreateNode(context.Background(), nodeType, "n", config)
		assert.NoErrorf(t, err, "node type %s", nodeType)
	}

	names := make([]string, 0)
	for _, tool := range r.Tools() {
		names = append(names, tool.Name())
	}

	assert.Contains(t, names, "http_request")
	assert.Contains(t, names, "remember")
}

package tools

import (
	"context"
	"errors"
	"sync"

	"github.com/strandworks/strand/pkg/models"
)

// RememberTool writes a key/value pair into the agent's memory store. The
// store is scoped per agent id and serialized internally.
type RememberTool struct {
	mu       sync.Mutex
	memories map[string]models.Object
}

// NewRememberTool creates the memory tool.
func NewRememberTool() *RememberTool {
	return &RememberTool{memories: make(map[string]models.Object)}
}

func (t *RememberTool) Name() string { return "remember" }

func (t *RememberTool) Description() string {
	return "Stores a key/value memory for the current agent. Input: key, value."
}

func (t *RememberTool) SideEffecting() bool { return false }

func (t *RememberTool) Execute(_ context.Context, input models.Object, rc models.RunContext) (models.Object, error) {
	key := input["key"].StringVal()
	if key == "" {
		return nil, errors.New("missing required field 'key'")
	}

	value, ok := input["value"]
	if !ok {
		return nil, errors.New("missing required field 'value'")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	memory, ok := t.memories[rc.AgentID]
	if !ok {
		memory = models.Object{}
		t.memories[rc.AgentID] = memory
	}

	memory[key] = value.Clone()

	return models.Object{
		"stored": models.Bool(true),
		"key":    models.String(key),
	}, nil
}

// Memory returns a snapshot of an agent's stored memory.
func (t *RememberTool) Memory(agentID string) models.Object {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.memories[agentID].Clone()
}

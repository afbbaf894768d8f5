// Package wait provides the wait-for-event node executor, used for workflows
// blocked on slow external operations such as meeting-recording bots.
package wait

import (
	"context"

	"github.com/strandworks/strand/pkg/protocol"
)

// Factory creates wait node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new wait executor.
func (f *Factory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeExecutor, error) {
	return NewNode(id, config)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "wait_for_event"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Wait For Event"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Pauses the execution until external data arrives under the configured context key"
}

// Schema returns the JSON schema for wait node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key": map[string]any{
				"type":        "string",
				"description": "Context data key whose presence resumes the execution",
			},
			"reason": map[string]any{
				"type": "string",
			},
		},
		"required": []any{"key"},
	}
}

// Package log provides the logging node executor.
package log

import (
	"context"

	"github.com/strandworks/strand/pkg/protocol"
)

// Factory creates log node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new log executor.
func (f *Factory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeExecutor, error) {
	return NewNode(id, config)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "log"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Log"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Writes a templated message to the process log"
}

// Schema returns the JSON schema for log node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type": "string",
			},
			"level": map[string]any{
				"type": "string",
				"enum": []any{"debug", "info", "warn", "error"},
			},
		},
		"required": []any{"message"},
	}
}

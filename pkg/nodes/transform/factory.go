// Package transform provides the data transformation node executor.
package transform

import (
	"context"

	"github.com/strandworks/strand/pkg/protocol"
)

// Factory creates transform node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new transform executor.
func (f *Factory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeExecutor, error) {
	return NewNode(id, config)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "transform"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Transform"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Transforms context data using Go template expressions"
}

// Schema returns the JSON schema for transform node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Go template expression evaluated against the workflow context",
			},
			"output_key": map[string]any{
				"type":        "string",
				"description": "Context key the rendered result is stored under (default: result)",
			},
		},
		"required": []any{"expression"},
	}
}

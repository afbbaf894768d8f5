// Package httprequest provides the HTTP request node executor.
package httprequest

import (
	"context"

	"github.com/strandworks/strand/pkg/protocol"
)

// Factory creates HTTP request node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new HTTP request executor.
func (f *Factory) Create(_ context.Context, id string, config map[string]any) (protocol.NodeExecutor, error) {
	return NewNode(id, config)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "http_request"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "HTTP Request"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Performs an HTTP request; url and body are templated against the context"
}

// Schema returns the JSON schema for HTTP request node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL, templated against the workflow context",
			},
			"method": map[string]any{
				"type": "string",
				"enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type": "object",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body template; rendered output that parses as JSON is sent as JSON",
			},
			"output_key": map[string]any{
				"type": "string",
			},
		},
		"required": []any{"url"},
	}
}

// Package protocol defines the interfaces and contracts for pluggable
// executors, tools and step primitives.
package protocol

import (
	"context"

	"github.com/strandworks/strand/pkg/models"
)

// NodeExecutor executes one workflow node against the running context. The
// returned object is merged into the context's data and recorded as the
// node's output.
type NodeExecutor interface {
	// ID returns the node instance identifier.
	ID() string

	// Type returns the node type tag this executor handles.
	Type() string

	// Execute performs the node's work. Executors read their configuration at
	// construction time; the context carries everything produced upstream.
	Execute(ctx context.Context, wctx *models.WorkflowContext) (models.Object, error)
}

// NodeFactory creates node executor instances and provides metadata about the
// node type.
type NodeFactory interface {
	// Create creates a new executor instance with the given configuration.
	Create(ctx context.Context, id string, config map[string]any) (NodeExecutor, error)

	// ID returns the unique identifier for this node type.
	ID() string

	// Name returns the human-readable name for this node type.
	Name() string

	// Description returns a description of what this node does.
	Description() string

	// Schema returns the JSON schema for configuring this node, or nil when
	// the type accepts any configuration.
	Schema() map[string]any
}

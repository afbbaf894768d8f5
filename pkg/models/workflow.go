package models

import (
	"errors"
	"fmt"
	"time"
)

// NodeCategory separates executable action nodes from trigger markers.
type NodeCategory string

const (
	CategoryTrigger NodeCategory = "trigger" // Entry marker, never executed
	CategoryAction  NodeCategory = "action"  // Executable unit of work
)

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"
	WorkflowStatusPublished WorkflowStatus = "published"
)

// WorkflowNode is one unit of a user-authored automation graph. Config is
// opaque to the engine; each node type's factory validates it against its
// published schema.
type WorkflowNode struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"     validate:"required"`
	Category NodeCategory   `json:"category" validate:"required,oneof=trigger action"`
	Name     string         `json:"name"     validate:"required,min=1"`
	Config   map[string]any `json:"config"`
	Enabled  bool           `json:"enabled"`
}

// WorkflowEdge is a directed dependency between two nodes. The edge set must
// be acyclic; cycles are a configuration error detected before execution.
type WorkflowEdge struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// Workflow is a user-authored automation graph. It is authored by an external
// editor and read-only during execution.
type Workflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	Status      WorkflowStatus  `json:"status"`
	Owner       string          `json:"owner"`
	WebhookPath string          `json:"webhook_path,omitempty"`
	Nodes       []*WorkflowNode `json:"nodes"`
	Edges       []*WorkflowEdge `json:"edges"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

var (
	ErrDuplicateNodeID   = errors.New("duplicate node id")
	ErrUnknownEdgeTarget = errors.New("edge references unknown node")
)

// Validate checks structural integrity of the graph: unique node ids and
// edges that reference existing nodes. Acyclicity is checked by the executor.
func (w *Workflow) Validate() error {
	seen := make(map[string]struct{}, len(w.Nodes))

	for _, node := range w.Nodes {
		if _, dup := seen[node.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, node.ID)
		}

		seen[node.ID] = struct{}{}
	}

	for _, edge := range w.Edges {
		if _, ok := seen[edge.Source]; !ok {
			return fmt.Errorf("%w: edge %s source %s", ErrUnknownEdgeTarget, edge.ID, edge.Source)
		}

		if _, ok := seen[edge.Target]; !ok {
			return fmt.Errorf("%w: edge %s target %s", ErrUnknownEdgeTarget, edge.ID, edge.Target)
		}
	}

	return nil
}

// TriggerNodes returns the graph's entry markers.
func (w *Workflow) TriggerNodes() []*WorkflowNode {
	var nodes []*WorkflowNode

	for _, node := range w.Nodes {
		if node.Category == CategoryTrigger {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// ActionNodes returns the executable nodes.
func (w *Workflow) ActionNodes() []*WorkflowNode {
	var nodes []*WorkflowNode

	for _, node := range w.Nodes {
		if node.Category == CategoryAction {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// Node returns the node with the given id, or nil.
func (w *Workflow) Node(id string) *WorkflowNode {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

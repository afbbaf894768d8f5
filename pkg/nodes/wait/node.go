package wait

import (
	"context"
	"errors"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/workflow"
)

// Node pauses the execution until the configured context key holds data.
// The first run pauses; after resume merges the external payload into the
// context, the node completes and exposes the payload as its output.
type Node struct {
	id     string
	key    string
	reason string
}

// NewNode creates a wait executor from config.
func NewNode(id string, config map[string]any) (*Node, error) {
	key, ok := config["key"].(string)
	if !ok || key == "" {
		return nil, errors.New("missing required field 'key'")
	}

	reason, _ := config["reason"].(string)
	if reason == "" {
		reason = "waiting for " + key
	}

	return &Node{id: id, key: key, reason: reason}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Type returns the node type.
func (n *Node) Type() string {
	return "wait_for_event"
}

// Execute pauses until the awaited key is present in the context data.
func (n *Node) Execute(_ context.Context, wctx *models.WorkflowContext) (models.Object, error) {
	value, ok := wctx.Data[n.key]
	if !ok || value.Kind() == models.KindNull {
		return nil, &workflow.PauseError{Reason: n.reason}
	}

	return models.Object{
		n.key + "_received": models.Bool(true),
	}, nil
}

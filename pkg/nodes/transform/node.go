package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/template"
)

// Node renders a template expression against the running context and stores
// the result under a configurable key.
type Node struct {
	id         string
	expression string
	outputKey  string
}

// NewNode creates a transform executor from config.
func NewNode(id string, config map[string]any) (*Node, error) {
	expression, ok := config["expression"].(string)
	if !ok {
		return nil, errors.New("missing required field 'expression'")
	}

	outputKey, _ := config["output_key"].(string)
	if outputKey == "" {
		outputKey = "result"
	}

	return &Node{
		id:         id,
		expression: expression,
		outputKey:  outputKey,
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Type returns the node type.
func (n *Node) Type() string {
	return "transform"
}

// Execute renders the expression and returns the result.
func (n *Node) Execute(_ context.Context, wctx *models.WorkflowContext) (models.Object, error) {
	result, err := template.RenderWithContext(n.expression, wctx)
	if err != nil {
		return nil, fmt.Errorf("transformation failed: %w", err)
	}

	return models.Object{
		n.outputKey: models.FromAny(result),
	}, nil
}

package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/template"
)

// Node writes a templated message to the process log.
type Node struct {
	id      string
	message string
	level   slog.Level
	logger  *slog.Logger
}

// NewNode creates a log executor from config.
func NewNode(id string, config map[string]any) (*Node, error) {
	message, ok := config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level := slog.LevelInfo

	switch config["level"] {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return &Node{
		id:      id,
		message: message,
		level:   level,
		logger:  slog.With("module", "log_node"),
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Type returns the node type.
func (n *Node) Type() string {
	return "log"
}

// Execute renders and logs the message.
func (n *Node) Execute(ctx context.Context, wctx *models.WorkflowContext) (models.Object, error) {
	rendered, err := template.RenderWithContext(n.message, wctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render log message: %w", err)
	}

	message := fmt.Sprintf("%v", rendered)

	n.logger.Log(ctx, n.level, message,
		"node_id", n.id,
		"execution_id", wctx.ID,
	)

	return models.Object{
		"logged": models.String(message),
	}, nil
}

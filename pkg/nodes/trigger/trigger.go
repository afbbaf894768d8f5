// Package trigger provides the trigger node factories. Trigger nodes mark
// where data enters a workflow; they carry no executable behavior and are
// skipped by the executor.
package trigger

import (
	"context"
	"errors"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/protocol"
)

// ErrTriggerNotExecutable is returned if a trigger node is ever executed.
var ErrTriggerNotExecutable = errors.New("trigger nodes are entry markers and cannot be executed")

type node struct {
	id       string
	nodeType string
}

func (n *node) ID() string   { return n.id }
func (n *node) Type() string { return n.nodeType }

func (n *node) Execute(_ context.Context, _ *models.WorkflowContext) (models.Object, error) {
	return nil, ErrTriggerNotExecutable
}

type factory struct {
	id          string
	name        string
	description string
	schema      map[string]any
}

func (f *factory) Create(_ context.Context, id string, _ map[string]any) (protocol.NodeExecutor, error) {
	return &node{id: id, nodeType: f.id}, nil
}

func (f *factory) ID() string             { return f.id }
func (f *factory) Name() string           { return f.name }
func (f *factory) Description() string    { return f.description }
func (f *factory) Schema() map[string]any { return f.schema }

// NewWebhookFactory creates the webhook trigger node factory.
func NewWebhookFactory() protocol.NodeFactory {
	return &factory{
		id:          "trigger:webhook",
		name:        "Webhook Trigger",
		description: "Starts the workflow when a webhook request arrives",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
			"required": []any{"path"},
		},
	}
}

// NewScheduleFactory creates the schedule trigger node factory.
func NewScheduleFactory() protocol.NodeFactory {
	return &factory{
		id:          "trigger:schedule",
		name:        "Schedule Trigger",
		description: "Starts the workflow on a cron schedule",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cron": map[string]any{"type": "string"},
			},
			"required": []any{"cron"},
		},
	}
}

// NewManualFactory creates the manual trigger node factory.
func NewManualFactory() protocol.NodeFactory {
	return &factory{
		id:          "trigger:manual",
		name:        "Manual Trigger",
		description: "Starts the workflow from a direct call or chat tool-call",
		schema:      nil,
	}
}

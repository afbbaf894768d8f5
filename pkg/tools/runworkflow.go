package tools

import (
	"context"
	"errors"

	"github.com/strandworks/strand/pkg/models"
)

// WorkflowRunner executes a workflow synchronously within the caller's
// request. Implemented by the execution service.
type WorkflowRunner interface {
	ExecuteWorkflowSync(ctx context.Context, workflowID, userID string, initial, memory, agentMemory models.Object) (models.Object, error)
}

// RunWorkflowTool lets an agent invoke a workflow as a tool. Conversation
// memory and agent memory snapshots are threaded into the workflow context.
type RunWorkflowTool struct {
	runner WorkflowRunner
}

// NewRunWorkflowTool creates the tool over the given runner.
func NewRunWorkflowTool(runner WorkflowRunner) *RunWorkflowTool {
	return &RunWorkflowTool{runner: runner}
}

func (t *RunWorkflowTool) Name() string { return "run_workflow" }

func (t *RunWorkflowTool) Description() string {
	return "Runs a workflow synchronously. Input: workflow_id (required), data, memory, agent_memory."
}

func (t *RunWorkflowTool) SideEffecting() bool { return true }

func (t *RunWorkflowTool) Execute(ctx context.Context, input models.Object, rc models.RunContext) (models.Object, error) {
	workflowID := input["workflow_id"].StringVal()
	if workflowID == "" {
		return nil, errors.New("missing required field 'workflow_id'")
	}

	var initial, memory, agentMemory models.Object

	if data, ok := input["data"]; ok && data.Kind() == models.KindObject {
		initial = data.ObjectVal()
	}

	if data, ok := input["memory"]; ok && data.Kind() == models.KindObject {
		memory = data.ObjectVal()
	}

	if data, ok := input["agent_memory"]; ok && data.Kind() == models.KindObject {
		agentMemory = data.ObjectVal()
	}

	return t.runner.ExecuteWorkflowSync(ctx, workflowID, rc.UserID, initial, memory, agentMemory)
}

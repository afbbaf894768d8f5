package models

// WorkflowContext is the mutable payload threaded through workflow node
// execution. It is exclusively owned by one in-flight execution; callers that
// need isolation (synchronous runs against shared data) Clone first.
type WorkflowContext struct {
	ID          string `json:"id"`
	WorkflowID  string `json:"workflow_id"`
	UserID      string `json:"user_id,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"`

	// Data is seeded with trigger data and extended by each node's output.
	Data Object `json:"data"`

	// Memory carries conversation memory when the workflow runs as an agent
	// tool; AgentMemory carries agent memory snapshots.
	Memory      Object `json:"memory,omitempty"`
	AgentMemory Object `json:"agent_memory,omitempty"`

	// CompletedNodes records node ids that already ran, so a resumed
	// execution never repeats finished work.
	CompletedNodes []string          `json:"completed_nodes"`
	NodeOutputs    map[string]Object `json:"node_outputs"`
}

// NewWorkflowContext seeds a context for one execution.
func NewWorkflowContext(id, workflowID, userID string, initial Object) *WorkflowContext {
	data := initial.Clone()
	if data == nil {
		data = Object{}
	}

	return &WorkflowContext{
		ID:          id,
		WorkflowID:  workflowID,
		UserID:      userID,
		Data:        data,
		NodeOutputs: make(map[string]Object),
	}
}

// Clone returns a deep copy for isolated execution.
func (c *WorkflowContext) Clone() *WorkflowContext {
	outputs := make(map[string]Object, len(c.NodeOutputs))
	for k, v := range c.NodeOutputs {
		outputs[k] = v.Clone()
	}

	completed := make([]string, len(c.CompletedNodes))
	copy(completed, c.CompletedNodes)

	return &WorkflowContext{
		ID:             c.ID,
		WorkflowID:     c.WorkflowID,
		UserID:         c.UserID,
		WorkspaceID:    c.WorkspaceID,
		Data:           c.Data.Clone(),
		Memory:         c.Memory.Clone(),
		AgentMemory:    c.AgentMemory.Clone(),
		CompletedNodes: completed,
		NodeOutputs:    outputs,
	}
}

// Completed reports whether the node already ran in this execution.
func (c *WorkflowContext) Completed(nodeID string) bool {
	for _, id := range c.CompletedNodes {
		if id == nodeID {
			return true
		}
	}

	return false
}

// MarkCompleted records a finished node and its output.
func (c *WorkflowContext) MarkCompleted(nodeID string, output Object) {
	if c.Completed(nodeID) {
		return
	}

	c.CompletedNodes = append(c.CompletedNodes, nodeID)

	if c.NodeOutputs == nil {
		c.NodeOutputs = make(map[string]Object)
	}

	c.NodeOutputs[nodeID] = output
}

// Package web provides HTTP request and response types for the execution API.
package web

// CreateWorkflowRequest represents the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name        string `json:"name"                   validate:"required,min=3"`
	Description string `json:"description"`
	Owner       string `json:"owner"                  validate:"required"`
	WebhookPath string `json:"webhook_path,omitempty"`
}

// ExecuteWorkflowRequest represents the request body for a synchronous run.
type ExecuteWorkflowRequest struct {
	UserID      string         `json:"user_id"                validate:"required"`
	Data        map[string]any `json:"data,omitempty"`
	Memory      map[string]any `json:"memory,omitempty"`
	AgentMemory map[string]any `json:"agent_memory,omitempty"`
}

// EnqueueWorkflowRequest represents the request body for a durable run.
type EnqueueWorkflowRequest struct {
	UserID string         `json:"user_id"        validate:"required"`
	Data   map[string]any `json:"data,omitempty"`
}

// ResumeExecutionRequest carries the late-arriving data merged into a waiting
// execution before it continues.
type ResumeExecutionRequest struct {
	Data map[string]any `json:"data,omitempty"`
}

// ExecuteAgentRequest represents the request body for an agent run, sync or
// queued.
type ExecuteAgentRequest struct {
	AgentID     string  `json:"agent_id"               validate:"required"`
	UserID      string  `json:"user_id"                validate:"required"`
	WorkspaceID string  `json:"workspace_id"           validate:"required"`
	Prompt      string  `json:"prompt"                 validate:"required"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	SafeMode    bool    `json:"safe_mode,omitempty"`
}

// JobResponse acknowledges accepted asynchronous work.
type JobResponse struct {
	JobID string `json:"job_id"`
}

// ExecuteResponse wraps the final context data of a synchronous run.
type ExecuteResponse struct {
	Data map[string]any `json:"data"`
}

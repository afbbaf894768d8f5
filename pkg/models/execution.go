package models

import "time"

// ExecutionState is the lifecycle state of a durable workflow execution.
type ExecutionState string

const (
	ExecutionRunning   ExecutionState = "running"
	ExecutionWaiting   ExecutionState = "waiting" // Paused pending an external event
	ExecutionCompleted ExecutionState = "completed"
	ExecutionFailed    ExecutionState = "failed"
)

// Execution is the durable record of one workflow run. CurrentContext holds
// the exact context snapshot at the last persisted point; resuming merges
// late-arriving data into that snapshot and never re-runs completed nodes.
type Execution struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	UserID     string         `json:"user_id,omitempty"`
	Status     ExecutionState `json:"status"`

	CurrentContext *WorkflowContext `json:"current_context,omitempty"`

	// StepResults caches completed durable-step outputs keyed by step id, so
	// re-execution after a restart does not repeat finished work.
	StepResults map[string]Object `json:"step_results,omitempty"`

	WaitReason string     `json:"wait_reason,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CachedStep returns the cached output of a completed durable step.
func (e *Execution) CachedStep(stepID string) (Object, bool) {
	out, ok := e.StepResults[stepID]

	return out, ok
}

// CacheStep records a completed durable step's output.
func (e *Execution) CacheStep(stepID string, output Object) {
	if e.StepResults == nil {
		e.StepResults = make(map[string]Object)
	}

	e.StepResults[stepID] = output
}

package models

import "time"

// JobKind identifies what a queued job executes.
type JobKind string

const (
	JobWorkflowRun    JobKind = "workflow_run"
	JobWorkflowResume JobKind = "workflow_resume"
	JobAgentRun       JobKind = "agent_run"
)

// TriggerSource records how an execution request entered the system.
type TriggerSource string

const (
	TriggeredManual   TriggerSource = "manual"
	TriggeredWebhook  TriggerSource = "webhook"
	TriggeredSchedule TriggerSource = "schedule"
	TriggeredAgent    TriggerSource = "agent"
)

// JobStatus is the queue lifecycle state of a job.
type JobStatus string

const (
	JobWaiting   JobStatus = "waiting"
	JobActive    JobStatus = "active"
	JobDelayed   JobStatus = "delayed"
	JobCompleted JobStatus = "completed"
	JobDead      JobStatus = "dead"
)

// QueuedJob is a durable unit of work. Failed jobs retry with exponential
// backoff up to MaxAttempts, then move to a bounded dead set for inspection.
type QueuedJob struct {
	ID          string        `json:"id"`
	Kind        JobKind       `json:"kind"`
	WorkflowID  string        `json:"workflow_id,omitempty"`
	ExecutionID string        `json:"execution_id,omitempty"`
	AgentID     string        `json:"agent_id,omitempty"`
	UserID      string        `json:"user_id,omitempty"`
	Payload     Object        `json:"payload,omitempty"`
	TriggeredBy TriggerSource `json:"triggered_by"`

	Status      JobStatus     `json:"status"`
	Attempts    int           `json:"attempts"`
	MaxAttempts int           `json:"max_attempts"`
	BackoffBase time.Duration `json:"backoff_base"`
	LastError   string        `json:"last_error,omitempty"`

	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

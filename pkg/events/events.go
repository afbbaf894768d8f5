// Package events defines event types and structures for execution lifecycle
// notifications.
package events

import (
	"time"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/protocol"
)

type EventType string

// Topics.
const Topic = "strand.events"                  // Workflow and agent lifecycle events
const NodeStatusTopic = "strand.node.statuses" // Per-node status updates streamed to builders
const JobTopic = "strand.jobs"                 // Queue job lifecycle events

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionPausedEvent    EventType = "execution.paused"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionTimeoutEvent   EventType = "execution.timeout"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Node status events.
	NodeStatusEvent EventType = "node.status"

	// Agent run events.
	AgentRunFinishedEvent EventType = "agent.run.finished"

	// Queue job events.
	JobEnqueuedEvent  EventType = "job.enqueued"
	JobCompletedEvent EventType = "job.completed"
	JobDeadEvent      EventType = "job.dead"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	UserID      string        `json:"user_id"`
	TriggeredBy string        `json:"triggered_by"`
	Initial     models.Object `json:"initial,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string        `json:"execution_id"`
	DurationMs    int64         `json:"duration_ms"`
	NodesExecuted int           `json:"nodes_executed"`
	Result        models.Object `json:"result,omitempty"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id,omitempty"`
	Error       string `json:"error"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionPaused struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	WaitReason  string `json:"wait_reason"`
}

func (e ExecutionPaused) GetType() EventType {
	return ExecutionPausedEvent
}

type ExecutionResumed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	MergedData  models.Object `json:"merged_data,omitempty"`
}

func (e ExecutionResumed) GetType() EventType {
	return ExecutionResumedEvent
}

type ExecutionTimeout struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	TimeoutMs   int64  `json:"timeout_ms"`
}

func (e ExecutionTimeout) GetType() EventType {
	return ExecutionTimeoutEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

// NodeStatus streams a single node's state change to listening builders.
type NodeStatus struct {
	BaseEvent

	ExecutionID string              `json:"execution_id"`
	NodeID      string              `json:"node_id"`
	Status      protocol.NodeStatus `json:"status"`
	Error       string              `json:"error,omitempty"`
}

func (e NodeStatus) GetType() EventType {
	return NodeStatusEvent
}

// AgentRunFinished reports the terminal accounting of one agent execution.
type AgentRunFinished struct {
	BaseEvent

	AgentID     string                 `json:"agent_id"`
	UserID      string                 `json:"user_id"`
	WorkspaceID string                 `json:"workspace_id"`
	Status      models.ExecutionStatus `json:"status"`
	TotalSteps  int                    `json:"total_steps"`
	Usage       models.Usage           `json:"usage"`
	ToolStats   models.ToolStats       `json:"tool_stats"`
	DurationMs  int64                  `json:"duration_ms"`
}

func (e AgentRunFinished) GetType() EventType {
	return AgentRunFinishedEvent
}

type JobEnqueued struct {
	BaseEvent

	JobID       string `json:"job_id"`
	Kind        string `json:"kind"`
	TriggeredBy string `json:"triggered_by"`
}

func (e JobEnqueued) GetType() EventType {
	return JobEnqueuedEvent
}

type JobCompleted struct {
	BaseEvent

	JobID      string `json:"job_id"`
	Attempts   int    `json:"attempts"`
	DurationMs int64  `json:"duration_ms"`
}

func (e JobCompleted) GetType() EventType {
	return JobCompletedEvent
}

type JobDead struct {
	BaseEvent

	JobID    string `json:"job_id"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

func (e JobDead) GetType() EventType {
	return JobDeadEvent
}

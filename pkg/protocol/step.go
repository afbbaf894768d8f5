package protocol

import (
	"context"

	"github.com/strandworks/strand/pkg/models"
)

// StepFunc is one unit of node work executed through a step runner.
type StepFunc func(ctx context.Context) (models.Object, error)

// StepRunner is the strategy boundary between synchronous and durable
// execution. The direct implementation passes through; the durable one caches
// completed results and retries independently, so re-execution after a
// process restart does not repeat finished work.
type StepRunner interface {
	Run(ctx context.Context, stepID string, fn StepFunc) (models.Object, error)
}

// LLMClient is the opaque LLM capability: send messages, get text plus token
// usage. Latency and cost are measured by the caller.
type LLMClient interface {
	Send(ctx context.Context, messages []models.Message, systemPrompt string, temperature float64) (*models.LLMReply, error)
}

// StatusPublisher publishes fire-and-forget node status events for UI
// subscribers. Implementations must never block or fail the owning execution.
type StatusPublisher interface {
	PublishNodeStatus(ctx context.Context, executionID, nodeID string, status NodeStatus, errText string)
}

// NodeStatus is the live progress state published per node.
type NodeStatus string

const (
	NodeLoading NodeStatus = "loading"
	NodeSuccess NodeStatus = "success"
	NodeError   NodeStatus = "error"
)

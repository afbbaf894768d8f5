package eventbus

import (
	"context"
	"log/slog"
	"time"

	"github.com/strandworks/strand/pkg/events"
	"github.com/strandworks/strand/pkg/protocol"
)

// BusStatusPublisher streams per-node status events over the event bus for UI
// subscribers. Publishing is best-effort: a bus failure is logged and never
// surfaces to the owning execution.
type BusStatusPublisher struct {
	bus    EventPublisher
	ids    interface{ GenerateID() string }
	logger *slog.Logger
}

func NewBusStatusPublisher(bus EventBus, logger *slog.Logger) *BusStatusPublisher {
	return &BusStatusPublisher{
		bus:    bus,
		ids:    bus,
		logger: logger.With("module", "status_publisher"),
	}
}

func (p *BusStatusPublisher) PublishNodeStatus(ctx context.Context, executionID, nodeID string, status protocol.NodeStatus, errText string) {
	event := events.NodeStatus{
		BaseEvent: events.BaseEvent{
			ID:        p.ids.GenerateID(),
			Type:      events.NodeStatusEvent,
			Timestamp: time.Now().UTC(),
		},
		ExecutionID: executionID,
		NodeID:      nodeID,
		Status:      status,
		Error:       errText,
	}

	if err := p.bus.Publish(ctx, executionID, event); err != nil {
		p.logger.WarnContext(ctx, "failed to publish node status",
			"execution_id", executionID,
			"node_id", nodeID,
			"error", err,
		)
	}
}

// NoopStatusPublisher discards node status events. Used where no UI is
// listening, such as synchronous chat-triggered runs and tests.
type NoopStatusPublisher struct{}

func (NoopStatusPublisher) PublishNodeStatus(_ context.Context, _, _ string, _ protocol.NodeStatus, _ string) {
}

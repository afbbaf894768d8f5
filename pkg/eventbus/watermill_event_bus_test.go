package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandworks/strand/pkg/channels/gochannel"
	"github.com/strandworks/strand/pkg/events"
	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/protocol"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBusPublishSubscribe(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.ExecutionCompleted, 1)

	err := bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event interface{}) error {
		completed, ok := event.(*events.ExecutionCompleted)
		require.True(t, ok)
		received <- completed

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.ExecutionCompleted{
		BaseEvent: events.BaseEvent{
			ID:         bus.GenerateID(),
			Type:       events.ExecutionCompletedEvent,
			Timestamp:  time.Now().UTC(),
			WorkflowID: "wf-1",
		},
		ExecutionID:   "exec-1",
		DurationMs:    42,
		NodesExecuted: 3,
		Result:        models.Object{"status": models.String("ok")},
	}

	require.NoError(t, bus.Publish(ctx, "exec-1", event))

	select {
	case got := <-received:
		assert.Equal(t, "exec-1", got.ExecutionID)
		assert.Equal(t, 3, got.NodesExecuted)
		assert.Equal(t, "wf-1", got.WorkflowID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBusUnhandledTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan struct{}, 1)

	err := bus.Handle(events.ExecutionFailedEvent, func(_ context.Context, _ interface{}) error {
		received <- struct{}{}

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// Published type has no handler registered; it must be acked and dropped
	// without disturbing the subscription.
	event := events.ExecutionStarted{
		BaseEvent:   events.BaseEvent{ID: bus.GenerateID(), Type: events.ExecutionStartedEvent},
		ExecutionID: "exec-1",
	}
	require.NoError(t, bus.Publish(ctx, "exec-1", event))

	failed := events.ExecutionFailed{
		BaseEvent:   events.BaseEvent{ID: bus.GenerateID(), Type: events.ExecutionFailedEvent},
		ExecutionID: "exec-1",
		Error:       "boom",
	}
	require.NoError(t, bus.Publish(ctx, "exec-1", failed))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("handled event was not delivered")
	}
}

func TestBusStatusPublisherDeliversNodeStatus(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.NodeStatus, 1)

	err := bus.Handle(events.NodeStatusEvent, func(_ context.Context, event interface{}) error {
		status, ok := event.(*events.NodeStatus)
		require.True(t, ok)
		received <- status

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	publisher := NewBusStatusPublisher(bus, testLogger())
	publisher.PublishNodeStatus(ctx, "exec-1", "node-a", protocol.NodeSuccess, "")

	select {
	case got := <-received:
		assert.Equal(t, "exec-1", got.ExecutionID)
		assert.Equal(t, "node-a", got.NodeID)
		assert.Equal(t, protocol.NodeSuccess, got.Status)
		assert.Empty(t, got.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("node status was not delivered")
	}
}

package redis

import (
	"io"
	"log/slog"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewQueueDefaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	q := NewQueue(client, testLogger())

	assert.Equal(t, defaultWorkers, q.workers)
	assert.Equal(t, defaultStallTimeout, q.stallTimeout)
	assert.Equal(t, "strand:queue:waiting", q.key("waiting"))
	assert.Equal(t, "strand:queue:delayed", q.key("delayed"))
}

func TestNewQueueOptions(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	q := NewQueue(client, testLogger(),
		WithWorkers(8),
		WithPrefix("custom:q"),
		WithStallTimeout(10*time.Second),
	)

	assert.Equal(t, 8, q.workers)
	assert.Equal(t, 10*time.Second, q.stallTimeout)
	assert.Equal(t, "custom:q:heartbeats", q.key("heartbeats"))
}

func TestNewQueueIgnoresInvalidOptions(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	q := NewQueue(client, testLogger(),
		WithWorkers(0),
		WithPrefix(""),
		WithStallTimeout(-time.Second),
	)

	assert.Equal(t, defaultWorkers, q.workers)
	assert.Equal(t, defaultStallTimeout, q.stallTimeout)
	assert.Equal(t, "strand:queue:jobs", q.key("jobs"))
}

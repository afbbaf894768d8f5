package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/strandworks/strand/pkg/queue"
	"github.com/strandworks/strand/pkg/queue/memory"
	"github.com/strandworks/strand/pkg/queue/redis"
)

// NewQueue selects a job queue backend by URL. redis:// URLs use the Redis
// queue; "memory" (or empty) uses the in-process queue.
func NewQueue(queueURL string, logger *slog.Logger, workers int) (queue.Queue, error) {
	if queueURL == "" || queueURL == "memory" {
		return memory.NewQueue(logger, memory.WithWorkers(workers)), nil
	}

	if strings.HasPrefix(queueURL, "redis://") || strings.HasPrefix(queueURL, "rediss://") {
		opts, err := goredis.ParseURL(queueURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis queue url: %w", err)
		}

		client := goredis.NewClient(opts)

		return redis.NewQueue(client, logger, redis.WithWorkers(workers)), nil
	}

	return nil, fmt.Errorf("unsupported queue url: %s", queueURL)
}

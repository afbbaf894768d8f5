package redis_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/queue"
	redisqueue "github.com/strandworks/strand/pkg/queue/redis"
)

var redisContainer *tcredis.RedisContainer

func setupTestQueue(t *testing.T, opts ...redisqueue.Option) (*redisqueue.Queue, *goredis.Client, string, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if redisContainer == nil || !redisContainer.IsRunning() {
		var err error

		redisContainer, err = tcredis.Run(ctx, "redis:7-alpine")
		require.NoError(t, err)
	}

	connString, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)

	redisOpts, err := goredis.ParseURL(connString)
	require.NoError(t, err)

	client := goredis.NewClient(redisOpts)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Each test gets its own key namespace so containers are shared safely.
	prefix := "strand:test:" + uuid.New().String()[:8]
	q := redisqueue.NewQueue(client, logger, append([]redisqueue.Option{redisqueue.WithPrefix(prefix)}, opts...)...)

	t.Cleanup(func() {
		_ = client.Close()
		cancel()
	})

	return q, client, prefix, ctx
}

func waitForJobStatus(t *testing.T, q *redisqueue.Queue, id string, status models.JobStatus, timeout time.Duration) *models.QueuedJob {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, err := q.Job(context.Background(), id)
		if err == nil && job.Status == status {
			return job
		}

		time.Sleep(25 * time.Millisecond)
	}

	t.Fatalf("job %s never reached status %s", id, status)

	return nil
}

func TestRedisQueueClaimsAndCompletesJob(t *testing.T) {
	q, _, _, ctx := setupTestQueue(t, redisqueue.WithWorkers(2))

	var handled atomic.Int32

	require.NoError(t, q.Start(ctx, func(_ context.Context, job *models.QueuedJob) error {
		if job.Kind == models.JobWorkflowRun {
			handled.Add(1)
		}

		return nil
	}))

	defer func() { _ = q.Stop(context.Background()) }()

	id, err := q.Enqueue(ctx, &models.QueuedJob{Kind: models.JobWorkflowRun, TriggeredBy: models.TriggeredManual})
	require.NoError(t, err)

	done := waitForJobStatus(t, q, id, models.JobCompleted, 10*time.Second)
	assert.Equal(t, 1, done.Attempts)
	assert.Empty(t, done.LastError)
	assert.NotNil(t, done.FinishedAt)
	assert.Equal(t, int32(1), handled.Load())

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Completed)
	assert.Zero(t, counts.Active)
}

func TestRedisQueueRetriesWithBackoffThenCompletes(t *testing.T) {
	q, _, _, ctx := setupTestQueue(t, redisqueue.WithWorkers(1))

	var attempts atomic.Int32

	require.NoError(t, q.Start(ctx, func(_ context.Context, _ *models.QueuedJob) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient failure")
		}

		return nil
	}))

	defer func() { _ = q.Stop(context.Background()) }()

	id, err := q.Enqueue(ctx, &models.QueuedJob{
		Kind:        models.JobWorkflowRun,
		TriggeredBy: models.TriggeredWebhook,
		MaxAttempts: 3,
		BackoffBase: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	done := waitForJobStatus(t, q, id, models.JobCompleted, 15*time.Second)
	assert.Equal(t, 3, done.Attempts)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRedisQueueMovesExhaustedJobToDeadList(t *testing.T) {
	q, _, _, ctx := setupTestQueue(t, redisqueue.WithWorkers(1))

	require.NoError(t, q.Start(ctx, func(_ context.Context, _ *models.QueuedJob) error {
		return errors.New("permanent failure")
	}))

	defer func() { _ = q.Stop(context.Background()) }()

	id, err := q.Enqueue(ctx, &models.QueuedJob{
		Kind:        models.JobWorkflowRun,
		TriggeredBy: models.TriggeredManual,
		MaxAttempts: 2,
		BackoffBase: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	done := waitForJobStatus(t, q, id, models.JobDead, 15*time.Second)
	assert.Equal(t, 2, done.Attempts)
	assert.Equal(t, "permanent failure", done.LastError)

	dead, err := q.DeadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, id, dead[0].ID)
}

func TestRedisQueueEvictsOldestFinishedJobRecords(t *testing.T) {
	q, client, prefix, ctx := setupTestQueue(t, redisqueue.WithWorkers(1), redisqueue.WithHistoryLimit(3))

	require.NoError(t, q.Start(ctx, func(_ context.Context, _ *models.QueuedJob) error { return nil }))

	defer func() { _ = q.Stop(context.Background()) }()

	ids := make([]string, 0, 5)

	for range 5 {
		id, err := q.Enqueue(ctx, &models.QueuedJob{Kind: models.JobWorkflowRun, TriggeredBy: models.TriggeredManual})
		require.NoError(t, err)

		ids = append(ids, id)
		waitForJobStatus(t, q, id, models.JobCompleted, 10*time.Second)
	}

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Completed)

	// Evicted jobs lose their hash record too, not just their list entry.
	for _, id := range ids[:2] {
		_, err := q.Job(ctx, id)
		assert.ErrorIs(t, err, queue.ErrJobNotFound)
	}

	for _, id := range ids[2:] {
		job, err := q.Job(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.JobCompleted, job.Status)
	}

	remaining, err := client.HLen(ctx, prefix+":jobs").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), remaining)
}

func TestRedisQueueRecoversStalledJob(t *testing.T) {
	q, client, prefix, ctx := setupTestQueue(t,
		redisqueue.WithWorkers(1),
		redisqueue.WithStallTimeout(time.Second),
	)

	// Simulate a worker that claimed a job and died: the id sits in the
	// active list with a heartbeat far past the stall cutoff.
	id, err := q.Enqueue(ctx, &models.QueuedJob{Kind: models.JobWorkflowRun, TriggeredBy: models.TriggeredSchedule})
	require.NoError(t, err)

	moved, err := client.LMove(ctx, prefix+":waiting", prefix+":active", "RIGHT", "LEFT").Result()
	require.NoError(t, err)
	require.Equal(t, id, moved)

	stale := float64(time.Now().UTC().Add(-time.Minute).UnixMilli())
	require.NoError(t, client.ZAdd(ctx, prefix+":heartbeats", goredis.Z{Score: stale, Member: id}).Err())

	var handled atomic.Int32

	require.NoError(t, q.Start(ctx, func(_ context.Context, _ *models.QueuedJob) error {
		handled.Add(1)

		return nil
	}))

	defer func() { _ = q.Stop(context.Background()) }()

	done := waitForJobStatus(t, q, id, models.JobCompleted, 15*time.Second)
	assert.Equal(t, int32(1), handled.Load())
	assert.Equal(t, models.JobCompleted, done.Status)

	stalled, err := client.LLen(ctx, prefix+":active").Result()
	require.NoError(t, err)
	assert.Zero(t, stalled)
}

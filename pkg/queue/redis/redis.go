// Package redis provides the Redis-backed execution queue. Jobs wait in a
// list, move atomically to the active list when claimed, park in a delayed
// sorted set between retries, and finish in trimmed completed/dead lists.
// Active workers heartbeat into a sorted set; a stall monitor re-queues jobs
// whose worker stopped heartbeating.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/queue"
)

const defaultWorkers = 4
const defaultHistoryLimit = 1000
const claimTimeout = time.Second
const promoteInterval = 250 * time.Millisecond
const heartbeatInterval = 5 * time.Second
const defaultStallTimeout = 30 * time.Second

// Queue is the Redis-backed queue implementation.
type Queue struct {
	client       redis.UniversalClient
	logger       *slog.Logger
	prefix       string
	workers      int
	history      int
	stallTimeout time.Duration

	activeMu sync.Mutex
	activeID map[string]struct{}

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

type Option func(*Queue)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithPrefix namespaces the queue's Redis keys.
func WithPrefix(prefix string) Option {
	return func(q *Queue) {
		if prefix != "" {
			q.prefix = prefix
		}
	}
}

// WithHistoryLimit bounds the completed and dead lists.
func WithHistoryLimit(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.history = n
		}
	}
}

// WithStallTimeout sets how long a job may go without a heartbeat before the
// stall monitor re-queues it.
func WithStallTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.stallTimeout = d
		}
	}
}

func NewQueue(client redis.UniversalClient, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		client:       client,
		logger:       logger.With("module", "redis_queue"),
		prefix:       "strand:queue",
		workers:      defaultWorkers,
		history:      defaultHistoryLimit,
		stallTimeout: defaultStallTimeout,
		activeID:     make(map[string]struct{}),
		stopCh:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

func (q *Queue) key(name string) string {
	return q.prefix + ":" + name
}

func (q *Queue) Enqueue(ctx context.Context, job *models.QueuedJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	if job.MaxAttempts <= 0 {
		job.MaxAttempts = queue.DefaultMaxAttempts
	}

	if job.BackoffBase <= 0 {
		job.BackoffBase = queue.DefaultBackoffBase
	}

	job.Status = models.JobWaiting
	job.EnqueuedAt = time.Now().UTC()

	if err := q.storeJob(ctx, job); err != nil {
		return "", err
	}

	if err := q.client.LPush(ctx, q.key("waiting"), job.ID).Err(); err != nil {
		return "", fmt.Errorf("failed to push job to waiting list: %w", err)
	}

	return job.ID, nil
}

func (q *Queue) Start(ctx context.Context, handler queue.Handler) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	for range q.workers {
		q.wg.Add(1)

		go q.worker(ctx, handler)
	}

	q.wg.Add(3)

	go q.promoter(ctx)
	go q.heartbeater(ctx)
	go q.stallMonitor(ctx)

	q.logger.InfoContext(ctx, "Queue started",
		"workers", q.workers,
		"stall_timeout", q.stallTimeout,
	)

	return nil
}

func (q *Queue) Stop(ctx context.Context) error {
	q.stopped.Do(func() { close(q.stopCh) })

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		q.logger.WarnContext(ctx, "Queue stop grace period elapsed with workers still busy")

		return ctx.Err()
	}
}

func (q *Queue) Job(ctx context.Context, id string) (*models.QueuedJob, error) {
	data, err := q.client.HGet(ctx, q.key("jobs"), id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, queue.ErrJobNotFound
		}

		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}

	var job models.QueuedJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}

	return &job, nil
}

func (q *Queue) DeadJobs(ctx context.Context) ([]*models.QueuedJob, error) {
	ids, err := q.client.LRange(ctx, q.key("dead"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead jobs: %w", err)
	}

	jobs := make([]*models.QueuedJob, 0, len(ids))

	for _, id := range ids {
		job, err := q.Job(ctx, id)
		if err != nil {
			if errors.Is(err, queue.ErrJobNotFound) {
				continue
			}

			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (q *Queue) Counts(ctx context.Context) (queue.Counts, error) {
	pipe := q.client.Pipeline()
	waiting := pipe.LLen(ctx, q.key("waiting"))
	active := pipe.LLen(ctx, q.key("active"))
	delayed := pipe.ZCard(ctx, q.key("delayed"))
	completed := pipe.LLen(ctx, q.key("completed"))
	dead := pipe.LLen(ctx, q.key("dead"))

	if _, err := pipe.Exec(ctx); err != nil {
		return queue.Counts{}, fmt.Errorf("failed to count jobs: %w", err)
	}

	return queue.Counts{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Delayed:   delayed.Val(),
		Completed: completed.Val(),
		Dead:      dead.Val(),
	}, nil
}

func (q *Queue) storeJob(ctx context.Context, job *models.QueuedJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}

	if err := q.client.HSet(ctx, q.key("jobs"), job.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to store job %s: %w", job.ID, err)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler queue.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		// Claim is atomic: the id moves from waiting to active in one step,
		// so a crash between claim and completion leaves it visible to the
		// stall monitor.
		id, err := q.client.BLMove(ctx, q.key("waiting"), q.key("active"), "RIGHT", "LEFT", claimTimeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}

			q.logger.ErrorContext(ctx, "Error claiming job", "error", err)
			time.Sleep(time.Second)

			continue
		}

		q.process(ctx, id, handler)
	}
}

func (q *Queue) process(ctx context.Context, id string, handler queue.Handler) {
	job, err := q.Job(ctx, id)
	if err != nil {
		q.logger.ErrorContext(ctx, "Claimed job has no record", "job_id", id, "error", err)
		q.client.LRem(ctx, q.key("active"), 1, id)

		return
	}

	now := time.Now().UTC()
	job.Status = models.JobActive
	job.Attempts++
	job.StartedAt = &now

	q.markActive(ctx, id)

	if err := q.storeJob(ctx, job); err != nil {
		q.logger.ErrorContext(ctx, "Failed to checkpoint active job", "job_id", id, "error", err)
	}

	handlerErr := handler(ctx, job)

	q.unmarkActive(ctx, id)
	q.client.LRem(ctx, q.key("active"), 1, id)

	finished := time.Now().UTC()

	if handlerErr == nil {
		job.Status = models.JobCompleted
		job.LastError = ""
		job.FinishedAt = &finished

		if err := q.storeJob(ctx, job); err != nil {
			q.logger.ErrorContext(ctx, "Failed to store completed job", "job_id", id, "error", err)
		}

		q.retire(ctx, "completed", id)

		return
	}

	job.LastError = handlerErr.Error()

	if job.Attempts >= job.MaxAttempts {
		job.Status = models.JobDead
		job.FinishedAt = &finished

		if err := q.storeJob(ctx, job); err != nil {
			q.logger.ErrorContext(ctx, "Failed to store dead job", "job_id", id, "error", err)
		}

		q.retire(ctx, "dead", id)

		q.logger.ErrorContext(ctx, "Job exhausted retries",
			"job_id", id,
			"kind", job.Kind,
			"attempts", job.Attempts,
			"error", handlerErr,
		)

		return
	}

	delay := queue.Backoff(job.BackoffBase, job.Attempts)
	job.Status = models.JobDelayed

	if err := q.storeJob(ctx, job); err != nil {
		q.logger.ErrorContext(ctx, "Failed to store delayed job", "job_id", id, "error", err)
	}

	readyAt := float64(time.Now().UTC().Add(delay).UnixMilli())
	q.client.ZAdd(ctx, q.key("delayed"), redis.Z{Score: readyAt, Member: id})

	q.logger.WarnContext(ctx, "Job failed, retrying",
		"job_id", id,
		"attempt", job.Attempts,
		"delay", delay,
		"error", handlerErr,
	)
}

// retire pushes a finished job onto a terminal list, trims the list to the
// history limit, and deletes the records of whatever fell off so the jobs
// hash stays bounded too.
func (q *Queue) retire(ctx context.Context, list, id string) {
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.key(list), id)
	evicted := pipe.LRange(ctx, q.key(list), int64(q.history), -1)
	pipe.LTrim(ctx, q.key(list), 0, int64(q.history)-1)

	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.ErrorContext(ctx, "Failed to trim terminal list", "list", list, "error", err)

		return
	}

	if ids := evicted.Val(); len(ids) > 0 {
		q.client.HDel(ctx, q.key("jobs"), ids...)
	}
}

func (q *Queue) markActive(ctx context.Context, id string) {
	q.activeMu.Lock()
	q.activeID[id] = struct{}{}
	q.activeMu.Unlock()

	q.client.ZAdd(ctx, q.key("heartbeats"), redis.Z{
		Score:  float64(time.Now().UTC().UnixMilli()),
		Member: id,
	})
}

func (q *Queue) unmarkActive(ctx context.Context, id string) {
	q.activeMu.Lock()
	delete(q.activeID, id)
	q.activeMu.Unlock()

	q.client.ZRem(ctx, q.key("heartbeats"), id)
}

// promoter moves due delayed jobs back to the waiting list.
func (q *Queue) promoter(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.promoteDue(ctx)
		}
	}
}

func (q *Queue) promoteDue(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)

	ids, err := q.client.ZRangeByScore(ctx, q.key("delayed"), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		q.logger.ErrorContext(ctx, "Error listing due delayed jobs", "error", err)

		return
	}

	for _, id := range ids {
		removed, err := q.client.ZRem(ctx, q.key("delayed"), id).Result()
		if err != nil || removed == 0 {
			continue
		}

		if job, err := q.Job(ctx, id); err == nil {
			job.Status = models.JobWaiting
			_ = q.storeJob(ctx, job)
		}

		q.client.LPush(ctx, q.key("waiting"), id)
	}
}

// heartbeater refreshes the heartbeat of every job this process is running.
func (q *Queue) heartbeater(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.activeMu.Lock()
			ids := make([]string, 0, len(q.activeID))

			for id := range q.activeID {
				ids = append(ids, id)
			}
			q.activeMu.Unlock()

			score := float64(time.Now().UTC().UnixMilli())
			for _, id := range ids {
				q.client.ZAdd(ctx, q.key("heartbeats"), redis.Z{Score: score, Member: id})
			}
		}
	}
}

// stallMonitor re-queues jobs whose heartbeat went stale, recovering work
// claimed by a worker that died mid-job.
func (q *Queue) stallMonitor(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.stallTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.recoverStalled(ctx)
		}
	}
}

func (q *Queue) recoverStalled(ctx context.Context) {
	cutoff := strconv.FormatInt(time.Now().UTC().Add(-q.stallTimeout).UnixMilli(), 10)

	ids, err := q.client.ZRangeByScore(ctx, q.key("heartbeats"), &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		q.logger.ErrorContext(ctx, "Error listing stalled jobs", "error", err)

		return
	}

	for _, id := range ids {
		removed, err := q.client.ZRem(ctx, q.key("heartbeats"), id).Result()
		if err != nil || removed == 0 {
			continue
		}

		q.client.LRem(ctx, q.key("active"), 1, id)

		if job, err := q.Job(ctx, id); err == nil {
			job.Status = models.JobWaiting
			_ = q.storeJob(ctx, job)
		}

		q.client.LPush(ctx, q.key("waiting"), id)

		q.logger.WarnContext(ctx, "Re-queued stalled job", "job_id", id)
	}
}

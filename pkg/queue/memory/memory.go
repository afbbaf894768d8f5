// Package memory provides the in-process queue implementation for local
// development and tests. Semantics mirror the Redis queue: retries with
// exponential backoff, a delayed set promoted when due, and bounded
// completed/dead sets.
package memory

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/queue"
)

const defaultWorkers = 4
const defaultHistoryLimit = 1000
const promoteInterval = 50 * time.Millisecond

// Queue is an in-memory durable-ish queue. Jobs do not survive the process;
// everything else behaves like the Redis implementation.
type Queue struct {
	logger  *slog.Logger
	workers int
	history int

	mu        sync.Mutex
	jobs      map[string]*models.QueuedJob
	waiting   chan string
	delayed   delayedHeap
	active    map[string]struct{}
	completed []string
	dead      []string
	closed    bool

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

// WithHistoryLimit bounds the completed and dead sets.
func WithHistoryLimit(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.history = n
		}
	}
}

func NewQueue(logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		logger:  logger.With("module", "memory_queue"),
		workers: defaultWorkers,
		history: defaultHistoryLimit,
		jobs:    make(map[string]*models.QueuedJob),
		waiting: make(chan string, 10000),
		active:  make(map[string]struct{}),
		stopCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

func (q *Queue) Enqueue(_ context.Context, job *models.QueuedJob) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", queue.ErrQueueClosed
	}

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
	q.jobs[job.ID] = job

	select {
	case q.waiting <- job.ID:
	default:
		return "", queue.ErrQueueClosed
	}

	return job.ID, nil
}

func (q *Queue) Start(ctx context.Context, handler queue.Handler) error {
	for range q.workers {
		q.wg.Add(1)

		go q.worker(ctx, handler)
	}

	q.wg.Add(1)

	go q.promoter(ctx)

	q.logger.InfoContext(ctx, "Queue started", "workers", q.workers)

	return nil
}

func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.stopped.Do(func() { close(q.stopCh) })

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		q.logger.WarnContext(ctx, "Queue stop grace period elapsed with workers still busy")

		return ctx.Err()
	}

	return nil
}

func (q *Queue) Job(_ context.Context, id string) (*models.QueuedJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, queue.ErrJobNotFound
	}

	clone := *job

	return &clone, nil
}

func (q *Queue) DeadJobs(_ context.Context) ([]*models.QueuedJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*models.QueuedJob, 0, len(q.dead))

	for _, id := range q.dead {
		if job, ok := q.jobs[id]; ok {
			clone := *job
			jobs = append(jobs, &clone)
		}
	}

	return jobs, nil
}

func (q *Queue) Counts(_ context.Context) (queue.Counts, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return queue.Counts{
		Waiting:   int64(len(q.waiting)),
		Active:    int64(len(q.active)),
		Delayed:   int64(len(q.delayed)),
		Completed: int64(len(q.completed)),
		Dead:      int64(len(q.dead)),
	}, nil
}

func (q *Queue) worker(ctx context.Context, handler queue.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		case id := <-q.waiting:
			q.process(ctx, id, handler)
		}
	}
}

func (q *Queue) process(ctx context.Context, id string, handler queue.Handler) {
	q.mu.Lock()

	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()

		return
	}

	now := time.Now().UTC()
	job.Status = models.JobActive
	job.Attempts++
	job.StartedAt = &now
	q.active[id] = struct{}{}
	snapshot := *job
	q.mu.Unlock()

	err := handler(ctx, &snapshot)

	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.active, id)

	if err == nil {
		finished := time.Now().UTC()
		job.Status = models.JobCompleted
		job.LastError = ""
		job.FinishedAt = &finished
		q.completed = q.retain(q.completed, id)

		return
	}

	job.LastError = err.Error()

	if job.Attempts >= job.MaxAttempts {
		finished := time.Now().UTC()
		job.Status = models.JobDead
		job.FinishedAt = &finished
		q.dead = q.retain(q.dead, id)

		q.logger.ErrorContext(ctx, "Job exhausted retries",
			"job_id", id,
			"kind", job.Kind,
			"attempts", job.Attempts,
			"error", err,
		)

		return
	}

	delay := queue.Backoff(job.BackoffBase, job.Attempts)
	job.Status = models.JobDelayed
	heap.Push(&q.delayed, &delayedJob{id: id, readyAt: time.Now().UTC().Add(delay)})

	q.logger.WarnContext(ctx, "Job failed, retrying",
		"job_id", id,
		"attempt", job.Attempts,
		"delay", delay,
		"error", err,
	)
}

// promoter moves due delayed jobs back to the waiting set.
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
			q.promoteDue()
		}
	}
}

func (q *Queue) promoteDue() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()

	for len(q.delayed) > 0 && !q.delayed[0].readyAt.After(now) {
		item, _ := heap.Pop(&q.delayed).(*delayedJob)

		if job, ok := q.jobs[item.id]; ok {
			job.Status = models.JobWaiting
		}

		select {
		case q.waiting <- item.id:
		default:
			heap.Push(&q.delayed, item)

			return
		}
	}
}

// retain appends a finished job to a terminal set and evicts oldest-first
// past the history limit. Evicted jobs are forgotten entirely, record
// included. Caller holds q.mu.
func (q *Queue) retain(list []string, id string) []string {
	list = append(list, id)

	for len(list) > q.history {
		delete(q.jobs, list[0])
		list = list[1:]
	}

	return list
}

type delayedJob struct {
	id      string
	readyAt time.Time
}

type delayedHeap []*delayedJob

func (h delayedHeap) Len() int           { return len(h) }
func (h delayedHeap) Less(i, j int) bool { return h[i].readyAt.Before(h[j].readyAt) }
func (h delayedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *delayedHeap) Push(x any) {
	job, _ := x.(*delayedJob)
	*h = append(*h, job)
}

func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}

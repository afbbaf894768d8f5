// Package queue provides the durable execution queue: jobs survive failures
// through bounded retries with exponential backoff and end in either a
// bounded completed set or a bounded dead set.
package queue

import (
	"context"
	"errors"

	"github.com/strandworks/strand/pkg/models"
)

// ErrJobNotFound indicates no job exists with the given identifier.
var ErrJobNotFound = errors.New("job not found")

// ErrQueueClosed indicates the queue has stopped accepting work.
var ErrQueueClosed = errors.New("queue is closed")

// Handler processes one job attempt. A nil return completes the job; an
// error schedules a retry or, past max attempts, moves the job to the dead
// set.
type Handler func(ctx context.Context, job *models.QueuedJob) error

// Counts is a point-in-time census of jobs per lifecycle state.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Delayed   int64 `json:"delayed"`
	Completed int64 `json:"completed"`
	Dead      int64 `json:"dead"`
}

// Queue is the durable job queue contract.
type Queue interface {
	// Enqueue adds a job to the waiting set and returns its id, assigning
	// one when the job has none. Defaults are applied to zero retry fields.
	Enqueue(ctx context.Context, job *models.QueuedJob) (string, error)

	// Start launches the worker pool consuming jobs with the handler.
	Start(ctx context.Context, handler Handler) error

	// Stop drains in-flight work and shuts the pool down. Jobs still running
	// past the grace period are abandoned to stall recovery.
	Stop(ctx context.Context) error

	// Job returns the current record of a job by id.
	Job(ctx context.Context, id string) (*models.QueuedJob, error)

	// DeadJobs returns the jobs that exhausted their retry budget.
	DeadJobs(ctx context.Context) ([]*models.QueuedJob, error)

	// Counts reports the per-state job census.
	Counts(ctx context.Context) (Counts, error)
}

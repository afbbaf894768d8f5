package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSyncTimeout indicates a synchronous run hit its wall-clock budget.
	ErrSyncTimeout = errors.New("synchronous execution timed out")

	// ErrExecutionNotWaiting indicates a resume was requested for an
	// execution that is not paused.
	ErrExecutionNotWaiting = errors.New("execution is not waiting")

	// ErrUnknownJobKind indicates the worker received a job kind it has no
	// handler for.
	ErrUnknownJobKind = errors.New("unknown job kind")
)

// SyncTimeoutError reports which workflow ran over and by how much budget.
type SyncTimeoutError struct {
	WorkflowID string
	Timeout    time.Duration
}

func (e *SyncTimeoutError) Error() string {
	return fmt.Sprintf("workflow %s exceeded synchronous budget of %s", e.WorkflowID, e.Timeout)
}

func (e *SyncTimeoutError) Unwrap() error {
	return ErrSyncTimeout
}

// IsSyncTimeout checks whether an error is a synchronous timeout.
func IsSyncTimeout(err error) bool {
	return errors.Is(err, ErrSyncTimeout)
}

// IsExecutionNotWaiting checks whether an error is a resume of a non-paused
// execution.
func IsExecutionNotWaiting(err error) bool {
	return errors.Is(err, ErrExecutionNotWaiting)
}

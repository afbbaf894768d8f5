// Package middleware provides standardized error kinds for policy aborts.
package middleware

import (
	"errors"
	"fmt"
)

// Policy abort kinds raised at before_llm / before_tool. These are
// user-actionable and must reach the caller as distinguishable errors, never
// folded into a generic failure.
var (
	// ErrCostLimitExceeded indicates the workspace's monthly spend cap is reached.
	ErrCostLimitExceeded = errors.New("cost limit exceeded")

	// ErrSafeModeBlocked indicates a side-effecting tool was blocked by safe mode.
	ErrSafeModeBlocked = errors.New("tool blocked by safe mode")
)

// CostLimitError carries the observed spend that tripped the guard.
type CostLimitError struct {
	WorkspaceID string
	LimitUSD    float64
	SpentUSD    float64
}

func (e *CostLimitError) Error() string {
	return fmt.Sprintf("cost limit exceeded for workspace %s: spent %.4f of %.4f USD",
		e.WorkspaceID, e.SpentUSD, e.LimitUSD)
}

func (e *CostLimitError) Unwrap() error {
	return ErrCostLimitExceeded
}

// SafeModeError names the blocked tool.
type SafeModeError struct {
	Tool string
}

func (e *SafeModeError) Error() string {
	return fmt.Sprintf("tool %q blocked by safe mode, confirmation required", e.Tool)
}

func (e *SafeModeError) Unwrap() error {
	return ErrSafeModeBlocked
}

// IsCostLimitExceeded checks if an error is a cost-guard abort.
func IsCostLimitExceeded(err error) bool {
	return errors.Is(err, ErrCostLimitExceeded)
}

// IsSafeModeBlocked checks if an error is a safe-mode abort.
func IsSafeModeBlocked(err error) bool {
	return errors.Is(err, ErrSafeModeBlocked)
}

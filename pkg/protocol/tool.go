package protocol

import (
	"context"

	"github.com/strandworks/strand/pkg/models"
)

// Tool is one named external capability an agent may invoke.
type Tool interface {
	// Name returns the tool's unique name.
	Name() string

	// Description returns what the tool does, surfaced to the model.
	Description() string

	// SideEffecting reports whether the tool mutates external state. Safe
	// mode blocks side-effecting tools pending explicit user confirmation.
	SideEffecting() bool

	// Execute performs the tool's work.
	Execute(ctx context.Context, input models.Object, rc models.RunContext) (models.Object, error)
}

// ToolGateway invokes named external capabilities and reports their outcome.
// Invoke never returns a Go error for tool-level failure; the result carries
// the success flag and error text so accounting survives partial failure.
type ToolGateway interface {
	Invoke(ctx context.Context, name string, input models.Object, rc models.RunContext) *models.ToolCallResult
	Known(name string) bool
}

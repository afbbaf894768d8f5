package middleware

import (
	"context"
	"log/slog"

	"github.com/strandworks/strand/pkg/models"
)

// StepLogger is an after_step middleware that records step progress. It is
// run through RunObserved and never aborts execution.
type StepLogger struct {
	logger *slog.Logger
}

// NewStepLogger creates the progress logger.
func NewStepLogger(logger *slog.Logger) *StepLogger {
	return &StepLogger{logger: logger.With("module", "agent_steps")}
}

// Middleware binds the logger to after_step.
func (l *StepLogger) Middleware(order int) Middleware {
	return Middleware{
		ID:      "step_logger",
		Hook:    HookAfterStep,
		Order:   order,
		Handler: l.handle,
	}
}

func (l *StepLogger) handle(ctx context.Context, data *HookData, rc models.RunContext) error {
	l.logger.InfoContext(ctx, "agent step finished",
		"agent_id", rc.AgentID,
		"step", data.Step,
		"node", data.NodeID,
		"messages", len(data.Messages),
	)

	return nil
}

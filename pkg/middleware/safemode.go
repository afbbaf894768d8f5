package middleware

import (
	"context"

	"github.com/strandworks/strand/pkg/models"
)

// SafeMode is a before_tool middleware that blocks a configured set of
// side-effecting tool names while the run context has safe mode enabled. The
// block surfaces as ErrSafeModeBlocked before the gateway is ever reached.
type SafeMode struct {
	blocked map[string]struct{}
}

// NewSafeMode creates the middleware with the blocked tool-name set.
func NewSafeMode(blockedTools []string) *SafeMode {
	blocked := make(map[string]struct{}, len(blockedTools))
	for _, name := range blockedTools {
		blocked[name] = struct{}{}
	}

	return &SafeMode{blocked: blocked}
}

// Middleware binds the check to before_tool.
func (s *SafeMode) Middleware(order int) Middleware {
	return Middleware{
		ID:      "safe_mode",
		Hook:    HookBeforeTool,
		Order:   order,
		Handler: s.handle,
	}
}

func (s *SafeMode) handle(_ context.Context, data *HookData, rc models.RunContext) error {
	if !rc.SafeMode || data.ToolCall == nil {
		return nil
	}

	if _, blocked := s.blocked[data.ToolCall.Name]; blocked {
		return &SafeModeError{Tool: data.ToolCall.Name}
	}

	return nil
}

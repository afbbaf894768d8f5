// Package tools provides the tool gateway and built-in tool implementations.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/protocol"
)

// Gateway invokes named external capabilities. Tool-level failure is recorded
// on the result, not returned as a Go error, so the caller's accounting
// survives partial failure.
type Gateway struct {
	logger *slog.Logger
	tools  map[string]protocol.Tool
}

// NewGateway creates a gateway over the given tools.
func NewGateway(logger *slog.Logger, tools ...protocol.Tool) *Gateway {
	registered := make(map[string]protocol.Tool, len(tools))
	for _, tool := range tools {
		registered[tool.Name()] = tool
	}

	return &Gateway{
		logger: logger.With("module", "tool_gateway"),
		tools:  registered,
	}
}

// Register adds a tool to the gateway.
func (g *Gateway) Register(tool protocol.Tool) {
	g.tools[tool.Name()] = tool
}

// Known reports whether a tool name is registered.
func (g *Gateway) Known(name string) bool {
	_, ok := g.tools[name]

	return ok
}

// Tool returns a registered tool by name.
func (g *Gateway) Tool(name string) (protocol.Tool, bool) {
	tool, ok := g.tools[name]

	return tool, ok
}

// Invoke executes the named tool and reports the outcome with latency.
func (g *Gateway) Invoke(ctx context.Context, name string, input models.Object, rc models.RunContext) *models.ToolCallResult {
	result := &models.ToolCallResult{
		Name:  name,
		Input: input.Clone(),
	}

	tool, ok := g.tools[name]
	if !ok {
		result.Error = fmt.Sprintf("unknown tool: %s", name)

		return result
	}

	started := time.Now()
	output, err := tool.Execute(ctx, input, rc)
	result.LatencyMs = time.Since(started).Milliseconds()

	if err != nil {
		result.Error = err.Error()
		g.logger.WarnContext(ctx, "tool invocation failed",
			"tool", name,
			"agent_id", rc.AgentID,
			"error", err,
		)

		return result
	}

	result.Success = true
	result.Output = output

	return result
}

package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/otelhelper"
)

// UsageWriter persists usage rollups. The store upserts atomically on the
// (workspace, day) composite key.
type UsageWriter interface {
	AddUsage(ctx context.Context, workspaceID, day string, usage models.Usage, llmCalls int) error
}

// Tracer is an after_llm / after_tool middleware that records span events and
// persists a usage/cost/latency rollup. Persistence failures are swallowed by
// RunObserved; tracing must never interrupt a run.
type Tracer struct {
	usage UsageWriter
}

// NewTracer creates the tracing middleware.
func NewTracer(usage UsageWriter) *Tracer {
	return &Tracer{usage: usage}
}

// LLMMiddleware binds the tracer to after_llm.
func (t *Tracer) LLMMiddleware(order int) Middleware {
	return Middleware{
		ID:      "tracer",
		Hook:    HookAfterLLM,
		Order:   order,
		Handler: t.handleLLM,
	}
}

// ToolMiddleware binds the tracer to after_tool.
func (t *Tracer) ToolMiddleware(order int) Middleware {
	return Middleware{
		ID:      "tracer",
		Hook:    HookAfterTool,
		Order:   order,
		Handler: t.handleTool,
	}
}

func (t *Tracer) handleLLM(ctx context.Context, data *HookData, rc models.RunContext) error {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("llm_call", trace.WithAttributes(
		attribute.String(otelhelper.AgentIDKey, rc.AgentID),
		attribute.String(otelhelper.ModelKey, rc.Model),
		attribute.Int64("strand.llm.latency_ms", data.LatencyMs),
	))

	if data.Usage == nil {
		return nil
	}

	day := time.Now().UTC().Format("2006-01-02")

	return t.usage.AddUsage(ctx, rc.WorkspaceID, day, *data.Usage, 1)
}

func (t *Tracer) handleTool(ctx context.Context, data *HookData, rc models.RunContext) error {
	if data.ToolResult == nil {
		return nil
	}

	span := trace.SpanFromContext(ctx)
	span.AddEvent("tool_call", trace.WithAttributes(
		attribute.String(otelhelper.AgentIDKey, rc.AgentID),
		attribute.String(otelhelper.ToolNameKey, data.ToolResult.Name),
		attribute.Bool("strand.tool.success", data.ToolResult.Success),
		attribute.Int64("strand.tool.latency_ms", data.ToolResult.LatencyMs),
	))

	return nil
}

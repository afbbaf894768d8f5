// Package middleware provides the ordered hook pipeline applied around agent
// LLM and tool invocations.
package middleware

import (
	"context"
	"log/slog"
	"sort"

	"github.com/strandworks/strand/pkg/models"
)

// Hook names an extension point in the agent execution loop.
type Hook string

const (
	HookBeforeStep   Hook = "before_step"
	HookAfterStep    Hook = "after_step"
	HookBeforeTool   Hook = "before_tool"
	HookAfterTool    Hook = "after_tool"
	HookBeforeLLM    Hook = "before_llm"
	HookAfterLLM     Hook = "after_llm"
	HookOnError      Hook = "on_error"
	HookOnCompletion Hook = "on_completion"
)

// HookData is the payload threaded through one hook invocation. Handlers may
// mutate or replace fields; the next handler in order observes the result.
type HookData struct {
	Step   int
	NodeID string

	SystemPrompt string
	Messages     []models.Message
	Reply        *models.LLMReply

	ToolCall   *models.ToolCall
	ToolResult *models.ToolCallResult

	State *models.AgentState
	Usage *models.Usage
	Err   error

	LatencyMs int64
}

// clone snapshots the payload so an observability handler that fails can have
// its partial mutation discarded.
func (d *HookData) clone() *HookData {
	out := *d

	out.Messages = make([]models.Message, len(d.Messages))
	copy(out.Messages, d.Messages)

	if d.Reply != nil {
		reply := *d.Reply
		out.Reply = &reply
	}

	if d.ToolCall != nil {
		call := *d.ToolCall
		call.Input = d.ToolCall.Input.Clone()
		out.ToolCall = &call
	}

	if d.ToolResult != nil {
		result := *d.ToolResult
		result.Input = d.ToolResult.Input.Clone()
		result.Output = d.ToolResult.Output.Clone()
		out.ToolResult = &result
	}

	if d.Usage != nil {
		usage := *d.Usage
		out.Usage = &usage
	}

	if d.State != nil {
		out.State = d.State.Clone()
	}

	return &out
}

// restore rolls the payload back to the snapshot. The agent state is shared
// with the runtime by pointer, so its contents are copied back in place
// rather than swapping the pointer out.
func (d *HookData) restore(snapshot *HookData) {
	state := d.State
	*d = *snapshot

	if state != nil && snapshot.State != nil {
		*state = *snapshot.State
		d.State = state
	}
}

// Handler transforms or observes the hook payload. Returning an error aborts
// the current hook invocation.
type Handler func(ctx context.Context, data *HookData, rc models.RunContext) error

// Middleware is a capability record bound to one hook. Execution order within
// a hook is ascending Order; ties run in registration order.
type Middleware struct {
	ID      string
	Hook    Hook
	Order   int
	Handler Handler
}

type entry struct {
	mw  Middleware
	seq int
}

// Pipeline stores middleware keyed by hook and folds them in order.
type Pipeline struct {
	logger *slog.Logger
	hooks  map[Hook][]entry
	seq    int
}

// NewPipeline creates an empty pipeline.
func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("module", "middleware"),
		hooks:  make(map[Hook][]entry),
	}
}

// Register stores middleware keyed by hook. Multiple middleware may share a
// hook; the per-hook slice is kept sorted by (Order, registration sequence).
func (p *Pipeline) Register(mw Middleware) {
	p.seq++
	entries := append(p.hooks[mw.Hook], entry{mw: mw, seq: p.seq})

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].mw.Order != entries[j].mw.Order {
			return entries[i].mw.Order < entries[j].mw.Order
		}

		return entries[i].seq < entries[j].seq
	})

	p.hooks[mw.Hook] = entries
}

// Run invokes every middleware bound to the hook in order, threading the
// payload from one handler to the next. The first handler error aborts the
// invocation and is returned to the caller; for before_llm and before_tool
// this must abort the enclosing step.
func (p *Pipeline) Run(ctx context.Context, hook Hook, data *HookData, rc models.RunContext) error {
	for _, e := range p.hooks[hook] {
		if err := e.mw.Handler(ctx, data, rc); err != nil {
			return err
		}
	}

	return nil
}

// RunObserved invokes the hook's middleware for observability purposes. A
// handler error is caught and logged, the handler's partial mutation is
// discarded, and the remaining handlers still run. Used for after_* and on_*
// hooks, which must never abort execution.
func (p *Pipeline) RunObserved(ctx context.Context, hook Hook, data *HookData, rc models.RunContext) {
	for _, e := range p.hooks[hook] {
		snapshot := data.clone()

		if err := e.mw.Handler(ctx, data, rc); err != nil {
			data.restore(snapshot)
			p.logger.WarnContext(ctx, "observability middleware failed",
				"hook", string(hook),
				"middleware", e.mw.ID,
				"error", err,
			)
		}
	}
}

// Registered returns the ids bound to a hook in execution order.
func (p *Pipeline) Registered(hook Hook) []string {
	ids := make([]string, 0, len(p.hooks[hook]))
	for _, e := range p.hooks[hook] {
		ids = append(ids, e.mw.ID)
	}

	return ids
}

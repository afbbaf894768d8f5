package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/strandworks/strand/pkg/llm"
	"github.com/strandworks/strand/pkg/middleware"
	"github.com/strandworks/strand/pkg/models"
)

// Metadata keys the built-in behaviors communicate through.
const (
	metaPendingTool = "pending_tool"
	metaFinished    = "finished"
	metaFinalAnswer = "final_answer"
	metaLastTool    = "last_tool"
)

// HasPendingTool reports whether the reasoning step requested a tool call.
func HasPendingTool(state *models.AgentState) bool {
	if state.Metadata == nil {
		return false
	}

	pending, ok := state.Metadata[metaPendingTool]

	return ok && pending.Kind() == models.KindObject
}

// Finished reports whether the reasoning step produced a final answer.
func Finished(state *models.AgentState) bool {
	if state.Metadata == nil {
		return false
	}

	return state.Metadata[metaFinished].BoolVal()
}

// DefaultGraph wires the standard reasoning → action → observation loop.
// Every turn funnels through the decision node, whose outgoing edges either
// end the run on a final answer or hand back to reasoning.
func DefaultGraph() *Graph {
	return NewGraph().
		AddNode(NodeStart, BehaviorFunc(startStep)).
		AddNode(NodeReasoning, BehaviorFunc(reasoningStep)).
		AddNode(NodeAction, BehaviorFunc(actionStep)).
		AddNode(NodeObservation, BehaviorFunc(observationStep)).
		AddNode(NodeDecision, BehaviorFunc(decisionStep)).
		SetEntry(NodeStart).
		AddEdge(NodeStart, NodeReasoning, nil).
		AddEdge(NodeReasoning, NodeAction, HasPendingTool).
		AddEdge(NodeReasoning, NodeDecision, nil).
		AddEdge(NodeAction, NodeObservation, nil).
		AddEdge(NodeObservation, NodeDecision, nil).
		AddEdge(NodeDecision, NodeEnd, Finished).
		AddEdge(NodeDecision, NodeReasoning, nil)
}

func startStep(_ context.Context, _ *Run, state *models.AgentState) error {
	if state.Metadata == nil {
		state.Metadata = models.Object{}
	}

	return nil
}

// reasoningStep performs one LLM turn: before_llm, send, after_llm. The reply
// either requests a tool (a line of the form `TOOL: name {json input}`) or is
// the final answer.
func reasoningStep(ctx context.Context, run *Run, state *models.AgentState) error {
	data := &middleware.HookData{
		Step:         state.CurrentStep,
		NodeID:       state.CurrentNodeID,
		State:        state,
		SystemPrompt: run.rt.systemPrompt,
		Messages:     append([]models.Message(nil), state.Messages...),
	}

	// A cost-limit abort here must reach the runtime as a step failure.
	if err := run.rt.pipeline.Run(ctx, middleware.HookBeforeLLM, data, run.rc); err != nil {
		return err
	}

	started := time.Now()

	reply, err := run.rt.llm.Send(ctx, data.Messages, data.SystemPrompt, run.rc.Temperature)
	if err != nil {
		return fmt.Errorf("llm call failed: %w", err)
	}

	data.Reply = reply
	data.LatencyMs = time.Since(started).Milliseconds()
	data.Usage = &models.Usage{
		TokensIn:  reply.TokensIn,
		TokensOut: reply.TokensOut,
		CostUSD:   llm.Cost(run.rc.Model, reply.TokensIn, reply.TokensOut),
	}

	run.rt.pipeline.RunObserved(ctx, middleware.HookAfterLLM, data, run.rc)
	run.acc.AddUsage(*data.Usage)

	state.AppendMessage(models.RoleAssistant, data.Reply.Text)

	if call, ok := parseToolDirective(data.Reply.Text); ok {
		state.Metadata[metaPendingTool] = models.ObjectValue(models.Object{
			"name":  models.String(call.Name),
			"input": models.ObjectValue(call.Input),
		})

		return nil
	}

	state.Metadata[metaFinished] = models.Bool(true)
	state.Metadata[metaFinalAnswer] = models.String(data.Reply.Text)

	return nil
}

// actionStep invokes the pending tool: before_tool, gateway invoke,
// after_tool. A safe-mode block at before_tool aborts before the gateway is
// reached.
func actionStep(ctx context.Context, run *Run, state *models.AgentState) error {
	pending, ok := state.Metadata[metaPendingTool]
	if !ok || pending.Kind() != models.KindObject {
		return fmt.Errorf("action node reached without a pending tool call")
	}

	call := &models.ToolCall{
		Name:  pending.ObjectVal()["name"].StringVal(),
		Input: pending.ObjectVal()["input"].ObjectVal(),
	}

	data := &middleware.HookData{
		Step:     state.CurrentStep,
		NodeID:   state.CurrentNodeID,
		State:    state,
		ToolCall: call,
	}

	if err := run.rt.pipeline.Run(ctx, middleware.HookBeforeTool, data, run.rc); err != nil {
		return err
	}

	result := run.rt.gateway.Invoke(ctx, data.ToolCall.Name, data.ToolCall.Input, run.rc)
	run.acc.RecordTool(result)

	data.ToolResult = result
	run.rt.pipeline.RunObserved(ctx, middleware.HookAfterTool, data, run.rc)

	state.ToolResults = append(state.ToolResults, *data.ToolResult)
	state.Metadata[metaLastTool] = models.ObjectValue(models.Object{
		"name":    models.String(result.Name),
		"success": models.Bool(result.Success),
	})
	delete(state.Metadata, metaPendingTool)

	content := fmt.Sprintf("tool %s failed: %s", result.Name, result.Error)
	if data.ToolResult.Success {
		encoded, err := json.Marshal(data.ToolResult.Output)
		if err != nil {
			encoded = []byte("{}")
		}

		content = string(encoded)
	}

	state.Messages = append(state.Messages, models.Message{
		Role:    models.RoleTool,
		Name:    result.Name,
		Content: content,
	})

	return nil
}

// observationStep folds the last tool outcome into the conversation so the
// next reasoning turn sees it.
func observationStep(_ context.Context, _ *Run, state *models.AgentState) error {
	last, ok := state.Metadata[metaLastTool]
	if !ok {
		return nil
	}

	outcome := "succeeded"
	if !last.ObjectVal()["success"].BoolVal() {
		outcome = "failed"
	}

	state.AppendMessage(models.RoleSystem,
		fmt.Sprintf("observation: tool %s %s", last.ObjectVal()["name"].StringVal(), outcome))

	return nil
}

// decisionStep is the terminal check between turns; the outgoing predicates
// do the actual branching.
func decisionStep(_ context.Context, _ *Run, _ *models.AgentState) error {
	return nil
}

// parseToolDirective extracts a `TOOL: name {json}` directive from the reply.
func parseToolDirective(text string) (*models.ToolCall, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		rest, found := strings.CutPrefix(line, "TOOL:")
		if !found {
			continue
		}

		rest = strings.TrimSpace(rest)

		name, rawInput, _ := strings.Cut(rest, " ")
		if name == "" {
			continue
		}

		input := models.Object{}

		rawInput = strings.TrimSpace(rawInput)
		if rawInput != "" {
			var decoded map[string]any
			if err := json.Unmarshal([]byte(rawInput), &decoded); err == nil {
				input = models.ObjectFromAny(decoded)
			}
		}

		return &models.ToolCall{Name: name, Input: input}, true
	}

	return nil, false
}

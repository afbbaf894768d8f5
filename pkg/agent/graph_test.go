package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strandworks/strand/pkg/models"
)

func noop(_ context.Context, _ *Run, _ *models.AgentState) error { return nil }

func TestGraphNextFirstMatchingEdgeWins(t *testing.T) {
	graph := NewGraph().
		AddNode("a", BehaviorFunc(noop)).
		AddEdge("a", "b", func(st *models.AgentState) bool { return st.CurrentStep > 5 }).
		AddEdge("a", "c", nil).
		AddEdge("a", "d", nil)

	state := &models.AgentState{CurrentStep: 2}
	assert.Equal(t, "c", graph.Next("a", state))

	state.CurrentStep = 10
	assert.Equal(t, "b", graph.Next("a", state))
}

func TestGraphNextFallsThroughToEnd(t *testing.T) {
	graph := NewGraph().
		AddNode("a", BehaviorFunc(noop)).
		AddEdge("a", "b", func(_ *models.AgentState) bool { return false })

	assert.Equal(t, NodeEnd, graph.Next("a", &models.AgentState{}))
}

func TestDefaultGraphRoutesEveryTurnThroughDecision(t *testing.T) {
	graph := DefaultGraph()
	state := &models.AgentState{Metadata: models.Object{}}

	// Both loop paths converge on the decision node.
	assert.Equal(t, NodeDecision, graph.Next(NodeReasoning, state))
	assert.Equal(t, NodeDecision, graph.Next(NodeObservation, state))

	// An unfinished run loops back to reasoning; a final answer ends it.
	assert.Equal(t, NodeReasoning, graph.Next(NodeDecision, state))

	state.Metadata[metaFinished] = models.Bool(true)
	assert.Equal(t, NodeEnd, graph.Next(NodeDecision, state))
}

func TestGraphNextNoEdges(t *testing.T) {
	graph := NewGraph().AddNode("lonely", BehaviorFunc(noop))

	assert.Equal(t, NodeEnd, graph.Next("lonely", &models.AgentState{}))
}

func TestParseToolDirective(t *testing.T) {
	t.Run("with input", func(t *testing.T) {
		call, ok := parseToolDirective("thinking...\nTOOL: http_request {\"url\": \"https://example.com\"}")

		assert.True(t, ok)
		assert.Equal(t, "http_request", call.Name)
		assert.Equal(t, "https://example.com", call.Input["url"].StringVal())
	})

	t.Run("without input", func(t *testing.T) {
		call, ok := parseToolDirective("TOOL: search")

		assert.True(t, ok)
		assert.Equal(t, "search", call.Name)
		assert.Empty(t, call.Input)
	})

	t.Run("plain answer", func(t *testing.T) {
		_, ok := parseToolDirective("The answer is 42.")

		assert.False(t, ok)
	})
}

func TestParseEvaluation(t *testing.T) {
	evaluation, err := parseEvaluation("0.8 solid answer with sources\nextra")

	assert.NoError(t, err)
	assert.InDelta(t, 0.8, evaluation.Score, 0.001)
	assert.Equal(t, "solid answer with sources", evaluation.Verdict)

	_, err = parseEvaluation("not a score")
	assert.Error(t, err)
}

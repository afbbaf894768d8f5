package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/protocol"
)

// Evaluator judges a completed run.
type Evaluator interface {
	Evaluate(ctx context.Context, state *models.AgentState, rc models.RunContext) (*models.Evaluation, error)
}

// LLMEvaluator asks a judge model to score the run's final answer between 0
// and 1.
type LLMEvaluator struct {
	llm protocol.LLMClient
}

// NewLLMEvaluator creates the judge over the given client.
func NewLLMEvaluator(client protocol.LLMClient) *LLMEvaluator {
	return &LLMEvaluator{llm: client}
}

const judgePrompt = "You are a strict evaluator. Reply with a single line: " +
	"a score between 0 and 1, a space, then a one-sentence verdict."

func (e *LLMEvaluator) Evaluate(ctx context.Context, state *models.AgentState, _ models.RunContext) (*models.Evaluation, error) {
	answer := state.Metadata[metaFinalAnswer].StringVal()
	if answer == "" && len(state.Messages) > 0 {
		answer = state.Messages[len(state.Messages)-1].Content
	}

	messages := []models.Message{
		{Role: models.RoleUser, Content: "Evaluate this agent answer:\n\n" + answer},
	}

	reply, err := e.llm.Send(ctx, messages, judgePrompt, 0)
	if err != nil {
		return nil, fmt.Errorf("evaluation call failed: %w", err)
	}

	return parseEvaluation(reply.Text)
}

func parseEvaluation(text string) (*models.Evaluation, error) {
	line := strings.TrimSpace(text)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	scoreText, verdict, _ := strings.Cut(line, " ")

	score, err := strconv.ParseFloat(scoreText, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable evaluation %q: %w", line, err)
	}

	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	return &models.Evaluation{Score: score, Verdict: strings.TrimSpace(verdict)}, nil
}

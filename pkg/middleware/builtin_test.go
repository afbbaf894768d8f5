package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandworks/strand/pkg/models"
)

type stubUsageReader struct {
	usage models.Usage
	err   error
	reads int
}

func (s *stubUsageReader) MonthlyUsage(_ context.Context, _, _ string) (models.Usage, error) {
	s.reads++

	return s.usage, s.err
}

func TestCostGuardAbortsOverBudget(t *testing.T) {
	reader := &stubUsageReader{usage: models.Usage{CostUSD: 25.0}}
	guard := NewCostGuard(reader, 10.0, time.Minute)

	err := guard.Middleware(10).Handler(context.Background(), &HookData{}, models.RunContext{WorkspaceID: "ws1"})

	require.Error(t, err)
	assert.True(t, IsCostLimitExceeded(err))

	var limitErr *CostLimitError

	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "ws1", limitErr.WorkspaceID)
	assert.InDelta(t, 25.0, limitErr.SpentUSD, 0.001)
}

func TestCostGuardAllowsUnderBudget(t *testing.T) {
	reader := &stubUsageReader{usage: models.Usage{CostUSD: 2.0}}
	guard := NewCostGuard(reader, 10.0, time.Minute)

	err := guard.Middleware(10).Handler(context.Background(), &HookData{}, models.RunContext{WorkspaceID: "ws1"})

	assert.NoError(t, err)
}

func TestCostGuardCachesAggregate(t *testing.T) {
	reader := &stubUsageReader{usage: models.Usage{CostUSD: 2.0}}
	guard := NewCostGuard(reader, 10.0, time.Minute)

	handler := guard.Middleware(10).Handler
	rc := models.RunContext{WorkspaceID: "ws1"}

	require.NoError(t, handler(context.Background(), &HookData{}, rc))
	require.NoError(t, handler(context.Background(), &HookData{}, rc))

	assert.Equal(t, 1, reader.reads)
}

func TestCostGuardToleratesStoreFailure(t *testing.T) {
	reader := &stubUsageReader{err: errors.New("store down")}
	guard := NewCostGuard(reader, 10.0, time.Minute)

	err := guard.Middleware(10).Handler(context.Background(), &HookData{}, models.RunContext{WorkspaceID: "ws1"})

	assert.NoError(t, err)
}

func TestSafeModeBlocksConfiguredTool(t *testing.T) {
	safeMode := NewSafeMode([]string{"send_email", "delete_record"})
	handler := safeMode.Middleware(10).Handler

	data := &HookData{ToolCall: &models.ToolCall{Name: "send_email"}}

	err := handler(context.Background(), data, models.RunContext{SafeMode: true})

	require.Error(t, err)
	assert.True(t, IsSafeModeBlocked(err))

	var blockErr *SafeModeError

	require.ErrorAs(t, err, &blockErr)
	assert.Equal(t, "send_email", blockErr.Tool)
}

func TestSafeModeAllowsWhenDisabled(t *testing.T) {
	safeMode := NewSafeMode([]string{"send_email"})
	handler := safeMode.Middleware(10).Handler

	data := &HookData{ToolCall: &models.ToolCall{Name: "send_email"}}

	assert.NoError(t, handler(context.Background(), data, models.RunContext{SafeMode: false}))
}

func TestSafeModeAllowsUnlistedTool(t *testing.T) {
	safeMode := NewSafeMode([]string{"send_email"})
	handler := safeMode.Middleware(10).Handler

	data := &HookData{ToolCall: &models.ToolCall{Name: "search"}}

	assert.NoError(t, handler(context.Background(), data, models.RunContext{SafeMode: true}))
}

func TestContextCompressorKeepsRecentWindow(t *testing.T) {
	compressor := NewContextCompressor(3)
	handler := compressor.Middleware(20).Handler

	data := &HookData{}
	for i := range 10 {
		data.Messages = append(data.Messages, models.Message{
			Role:    models.RoleUser,
			Content: string(rune('a' + i)),
		})
	}

	require.NoError(t, handler(context.Background(), data, models.RunContext{}))

	require.Len(t, data.Messages, 4)
	assert.Equal(t, models.RoleSystem, data.Messages[0].Role)
	assert.Contains(t, data.Messages[0].Content, "7 earlier messages elided")
	assert.Equal(t, "h", data.Messages[1].Content)
	assert.Equal(t, "j", data.Messages[3].Content)
}

func TestContextCompressorNoopUnderWindow(t *testing.T) {
	compressor := NewContextCompressor(5)
	handler := compressor.Middleware(20).Handler

	data := &HookData{Messages: []models.Message{{Role: models.RoleUser, Content: "only"}}}

	require.NoError(t, handler(context.Background(), data, models.RunContext{}))
	assert.Len(t, data.Messages, 1)
}

func TestRedactorScrubsReply(t *testing.T) {
	redactor := NewRedactor()
	handler := redactor.LLMMiddleware(10).Handler

	data := &HookData{Reply: &models.LLMReply{
		Text: "Contact alice@example.com or +1 (555) 123-4567 for details",
	}}

	require.NoError(t, handler(context.Background(), data, models.RunContext{}))
	assert.NotContains(t, data.Reply.Text, "alice@example.com")
	assert.NotContains(t, data.Reply.Text, "555")
	assert.Contains(t, data.Reply.Text, "[redacted-email]")
	assert.Contains(t, data.Reply.Text, "[redacted-phone]")
}

func TestRedactorScrubsNestedToolOutput(t *testing.T) {
	redactor := NewRedactor()
	handler := redactor.ToolMiddleware(10).Handler

	data := &HookData{ToolResult: &models.ToolCallResult{
		Name: "lookup",
		Output: models.Object{
			"contact": models.ObjectValue(models.Object{
				"email": models.String("bob@example.org"),
			}),
			"notes": models.ListValue([]models.Value{models.String("call +44 20 7946 0958")}),
		},
	}}

	require.NoError(t, handler(context.Background(), data, models.RunContext{}))

	contact := data.ToolResult.Output["contact"].ObjectVal()
	assert.Equal(t, "[redacted-email]", contact["email"].StringVal())
	assert.Contains(t, data.ToolResult.Output["notes"].ListVal()[0].StringVal(), "[redacted-phone]")
}

package middleware

import (
	"context"
	"fmt"

	"github.com/strandworks/strand/pkg/models"
)

// ContextCompressor is a before_llm middleware that bounds prompt size. The
// last KeepRecent messages are kept verbatim; older history is collapsed into
// a single elision marker so the model still sees that context was dropped.
type ContextCompressor struct {
	KeepRecent int
}

// NewContextCompressor creates the compressor with a retention window.
func NewContextCompressor(keepRecent int) *ContextCompressor {
	return &ContextCompressor{KeepRecent: keepRecent}
}

// Middleware binds the compressor to before_llm.
func (c *ContextCompressor) Middleware(order int) Middleware {
	return Middleware{
		ID:      "context_compressor",
		Hook:    HookBeforeLLM,
		Order:   order,
		Handler: c.handle,
	}
}

func (c *ContextCompressor) handle(_ context.Context, data *HookData, _ models.RunContext) error {
	if c.KeepRecent <= 0 || len(data.Messages) <= c.KeepRecent {
		return nil
	}

	elided := len(data.Messages) - c.KeepRecent

	compressed := make([]models.Message, 0, c.KeepRecent+1)
	compressed = append(compressed, models.Message{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf("[%d earlier messages elided]", elided),
	})
	compressed = append(compressed, data.Messages[elided:]...)

	data.Messages = compressed

	return nil
}

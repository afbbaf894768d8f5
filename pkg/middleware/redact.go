package middleware

import (
	"context"
	"regexp"

	"github.com/strandworks/strand/pkg/models"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
)

// Redactor is an after_llm / after_tool middleware that scrubs emails and
// phone numbers from outputs before any persistence or forwarding.
type Redactor struct{}

// NewRedactor creates the PII scrubber.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// LLMMiddleware binds the scrubber to after_llm.
func (r *Redactor) LLMMiddleware(order int) Middleware {
	return Middleware{
		ID:      "pii_redactor",
		Hook:    HookAfterLLM,
		Order:   order,
		Handler: r.handleLLM,
	}
}

// ToolMiddleware binds the scrubber to after_tool.
func (r *Redactor) ToolMiddleware(order int) Middleware {
	return Middleware{
		ID:      "pii_redactor",
		Hook:    HookAfterTool,
		Order:   order,
		Handler: r.handleTool,
	}
}

func (r *Redactor) handleLLM(_ context.Context, data *HookData, _ models.RunContext) error {
	if data.Reply != nil {
		data.Reply.Text = Scrub(data.Reply.Text)
	}

	return nil
}

func (r *Redactor) handleTool(_ context.Context, data *HookData, _ models.RunContext) error {
	if data.ToolResult == nil {
		return nil
	}

	data.ToolResult.Output = scrubObject(data.ToolResult.Output)

	return nil
}

// Scrub replaces emails and phone numbers in text with redaction markers.
func Scrub(text string) string {
	text = emailPattern.ReplaceAllString(text, "[redacted-email]")
	text = phonePattern.ReplaceAllString(text, "[redacted-phone]")

	return text
}

func scrubObject(obj models.Object) models.Object {
	if obj == nil {
		return nil
	}

	out := make(models.Object, len(obj))
	for k, v := range obj {
		out[k] = scrubValue(v)
	}

	return out
}

func scrubValue(v models.Value) models.Value {
	switch v.Kind() {
	case models.KindString:
		return models.String(Scrub(v.StringVal()))
	case models.KindObject:
		return models.ObjectValue(scrubObject(v.ObjectVal()))
	case models.KindList:
		list := v.ListVal()
		out := make([]models.Value, len(list))

		for i, item := range list {
			out[i] = scrubValue(item)
		}

		return models.ListValue(out)
	default:
		return v
	}
}

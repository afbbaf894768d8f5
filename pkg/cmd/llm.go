package cmd

import (
	"errors"

	"github.com/strandworks/strand/pkg/llm"
	"github.com/strandworks/strand/pkg/protocol"
)

// NewLLMClient builds the chat-completions client the agent runtime talks
// to. Any OpenAI-compatible endpoint works; the base URL carries the /v1
// prefix.
func NewLLMClient(baseURL, apiKey, model string) (protocol.LLMClient, error) {
	if baseURL == "" {
		return nil, errors.New("llm url is required")
	}

	if model == "" {
		return nil, errors.New("llm model is required")
	}

	return llm.NewHTTPClient(baseURL, apiKey, model), nil
}

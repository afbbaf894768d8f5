// Package llm provides the LLM capability contract and a chat-completions
// style HTTP adapter. The engine treats the provider as a black box: send
// messages, get text plus token usage.
package llm

import (
	"github.com/strandworks/strand/pkg/protocol"
)

// Client is the provider-facing contract. Alias of the protocol interface so
// engine packages depend on protocol only.
type Client = protocol.LLMClient

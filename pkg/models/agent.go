package models

import "time"

// MessageRole is the author role of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Message is one entry of an agent conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
	Name    string      `json:"name,omitempty"`
}

// ToolCall is a pending request to invoke a named external capability.
type ToolCall struct {
	Name  string `json:"name"`
	Input Object `json:"input"`
}

// ToolCallResult is the recorded outcome of one tool invocation.
type ToolCallResult struct {
	Name      string `json:"name"`
	Input     Object `json:"input"`
	Output    Object `json:"output,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

// LLMReply is the opaque LLM capability's answer to one send.
type LLMReply struct {
	Text      string `json:"text"`
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
}

// AgentState is the mutable record carried through the agent graph runtime.
// CurrentStep never exceeds MaxSteps; CurrentNodeID always references a graph
// node or the terminal sentinel.
type AgentState struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
	UserID         string `json:"user_id"`
	WorkspaceID    string `json:"workspace_id"`

	Messages         []Message        `json:"messages"`
	ToolResults      []ToolCallResult `json:"tool_results"`
	Memory           Object           `json:"memory,omitempty"`
	RetrievedContext []string         `json:"retrieved_context,omitempty"`

	CurrentStep   int    `json:"current_step"`
	MaxSteps      int    `json:"max_steps"`
	CurrentNodeID string `json:"current_node_id"`

	Metadata Object `json:"metadata,omitempty"`
}

// StepsExhausted reports whether the step budget is spent.
func (s *AgentState) StepsExhausted() bool {
	return s.CurrentStep >= s.MaxSteps
}

// AppendMessage adds a message to the conversation.
func (s *AgentState) AppendMessage(role MessageRole, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// Clone returns a deep copy of the state.
func (s *AgentState) Clone() *AgentState {
	messages := make([]Message, len(s.Messages))
	copy(messages, s.Messages)

	results := make([]ToolCallResult, len(s.ToolResults))
	for i, r := range s.ToolResults {
		r.Input = r.Input.Clone()
		r.Output = r.Output.Clone()
		results[i] = r
	}

	retrieved := make([]string, len(s.RetrievedContext))
	copy(retrieved, s.RetrievedContext)

	clone := *s
	clone.Messages = messages
	clone.ToolResults = results
	clone.RetrievedContext = retrieved
	clone.Memory = s.Memory.Clone()
	clone.Metadata = s.Metadata.Clone()

	return &clone
}

// RunContext is the immutable per-execution configuration of an agent run.
// Accumulated numbers live on the runtime's accumulator, never here.
type RunContext struct {
	AgentID     string   `json:"agent_id"`
	UserID      string   `json:"user_id"`
	WorkspaceID string   `json:"workspace_id"`
	TraceID     string   `json:"trace_id,omitempty"`
	Model       string   `json:"model"`
	Temperature float64  `json:"temperature"`
	SafeMode    bool     `json:"safe_mode"`
	Tools       []string `json:"tools,omitempty"`
}

// ExecutionStatus is the terminal status of an agent or workflow run.
type ExecutionStatus string

const (
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusTimeout   ExecutionStatus = "timeout"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Usage is a monotonic token/cost accumulator snapshot.
type Usage struct {
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	CostUSD   float64 `json:"cost_usd"`
}

// Add folds another usage sample into the total.
func (u *Usage) Add(other Usage) {
	u.TokensIn += other.TokensIn
	u.TokensOut += other.TokensOut
	u.CostUSD += other.CostUSD
}

// ToolStats counts tool invocation outcomes within one execution.
type ToolStats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Evaluation is an optional post-completion judgement of an agent run.
type Evaluation struct {
	Score   float64 `json:"score"`
	Verdict string  `json:"verdict"`
}

// ExecutionResult is the terminal record of an agent run. Created once at the
// end of an execution and never mutated after creation.
type ExecutionResult struct {
	Status     ExecutionStatus `json:"status"`
	FinalState *AgentState     `json:"final_state,omitempty"`
	TotalSteps int             `json:"total_steps"`
	LatencyMs  int64           `json:"latency_ms"`
	Usage      Usage           `json:"usage"`
	ToolStats  ToolStats       `json:"tool_stats"`
	Evaluation *Evaluation     `json:"evaluation,omitempty"`
	Error      string          `json:"error,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`

	// Cause keeps the typed failure for callers that branch on policy
	// aborts. The serialized record carries only the message.
	Cause error `json:"-"`
}

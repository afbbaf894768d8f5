package models

// UsageRecord is a daily usage rollup per workspace, upserted atomically on
// the composite (workspace, day) key and read back as a monthly aggregate by
// the cost guard.
type UsageRecord struct {
	WorkspaceID string `json:"workspace_id"`
	Day         string `json:"day"` // YYYY-MM-DD
	Usage       Usage  `json:"usage"`
	LLMCalls    int    `json:"llm_calls"`
}

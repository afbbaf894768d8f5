package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL DEFAULT 'draft',
				owner VARCHAR(255),
				webhook_path VARCHAR(255),
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_owner ON workflows(owner);
			CREATE INDEX idx_workflows_webhook_path ON workflows(webhook_path);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255),
				status VARCHAR(50) NOT NULL,
				current_context JSONB,
				step_results JSONB,
				wait_reason TEXT,
				error TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);

			CREATE TABLE usage_records (
				workspace_id VARCHAR(255) NOT NULL,
				day CHAR(10) NOT NULL,
				tokens_in BIGINT NOT NULL DEFAULT 0,
				tokens_out BIGINT NOT NULL DEFAULT 0,
				cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
				llm_calls BIGINT NOT NULL DEFAULT 0,
				PRIMARY KEY (workspace_id, day)
			);
		`,
	}
}

package postgresql

import (
	"context"
	"database/sql"

	"github.com/strandworks/strand/pkg/models"
)

// UsageRepository stores daily usage rollups. AddUsage is a single atomic
// upsert on the (workspace_id, day) key, so concurrent executions never lose
// increments.
type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (ur *UsageRepository) AddUsage(ctx context.Context, workspaceID, day string, usage models.Usage, llmCalls int) error {
	_, err := ur.db.ExecContext(ctx, `
		INSERT INTO usage_records (workspace_id, day, tokens_in, tokens_out, cost_usd, llm_calls)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workspace_id, day) DO UPDATE SET
			tokens_in = usage_records.tokens_in + EXCLUDED.tokens_in,
			tokens_out = usage_records.tokens_out + EXCLUDED.tokens_out,
			cost_usd = usage_records.cost_usd + EXCLUDED.cost_usd,
			llm_calls = usage_records.llm_calls + EXCLUDED.llm_calls
	`, workspaceID, day, usage.TokensIn, usage.TokensOut, usage.CostUSD, llmCalls)

	return err
}

func (ur *UsageRepository) MonthlyUsage(ctx context.Context, workspaceID, month string) (models.Usage, error) {
	var total models.Usage

	err := ur.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(tokens_in), 0), COALESCE(SUM(tokens_out), 0), COALESCE(SUM(cost_usd), 0)
		FROM usage_records WHERE workspace_id = $1 AND day LIKE $2 || '-%'
	`, workspaceID, month).Scan(&total.TokensIn, &total.TokensOut, &total.CostUSD)
	if err != nil {
		return models.Usage{}, err
	}

	return total, nil
}

func (ur *UsageRepository) DailyRecords(ctx context.Context, workspaceID, month string) ([]*models.UsageRecord, error) {
	rows, err := ur.db.QueryContext(ctx, `
		SELECT workspace_id, day, tokens_in, tokens_out, cost_usd, llm_calls
		FROM usage_records WHERE workspace_id = $1 AND day LIKE $2 || '-%'
		ORDER BY day
	`, workspaceID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.UsageRecord, 0)

	for rows.Next() {
		var record models.UsageRecord

		err := rows.Scan(&record.WorkspaceID, &record.Day, &record.Usage.TokensIn,
			&record.Usage.TokensOut, &record.Usage.CostUSD, &record.LLMCalls)
		if err != nil {
			return nil, err
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

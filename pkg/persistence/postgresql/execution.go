package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/persistence"
)

// ExecutionRepository stores durable execution records. The context snapshot
// and step cache are JSONB documents written whole on every checkpoint.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (er *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.Execution) error {
	currentContext, err := json.Marshal(execution.CurrentContext)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	stepResults, err := json.Marshal(execution.StepResults)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	execution.UpdatedAt = time.Now().UTC()

	_, err = er.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, user_id, status, current_context, step_results, wait_reason, error, started_at, finished_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_context = EXCLUDED.current_context,
			step_results = EXCLUDED.step_results,
			wait_reason = EXCLUDED.wait_reason,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at,
			updated_at = EXCLUDED.updated_at
	`, execution.ID, execution.WorkflowID, execution.UserID, execution.Status,
		currentContext, stepResults, execution.WaitReason, execution.Error,
		execution.StartedAt, execution.FinishedAt, execution.UpdatedAt)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return nil
}

// UpdateExecution is an upsert on the execution id.
func (er *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	return er.SaveExecution(ctx, execution)
}

func (er *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	row := er.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, user_id, status, current_context, step_results, wait_reason, error, started_at, finished_at, updated_at
		FROM executions WHERE id = $1
	`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return execution, nil
}

func (er *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	rows, err := er.db.QueryContext(ctx, `
		SELECT id, workflow_id, user_id, status, current_context, step_results, wait_reason, error, started_at, finished_at, updated_at
		FROM executions WHERE workflow_id = $1 ORDER BY started_at
	`, workflowID)
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionsByWorkflow", "", err)
	}
	defer rows.Close()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewExecutionError("ExecutionsByWorkflow", "", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewExecutionError("ExecutionsByWorkflow", "", err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution      models.Execution
		userID         sql.NullString
		currentContext []byte
		stepResults    []byte
		waitReason     sql.NullString
		errText        sql.NullString
		finishedAt     sql.NullTime
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &userID, &execution.Status,
		&currentContext, &stepResults, &waitReason, &errText,
		&execution.StartedAt, &finishedAt, &execution.UpdatedAt)
	if err != nil {
		return nil, err
	}

	execution.UserID = userID.String
	execution.WaitReason = waitReason.String
	execution.Error = errText.String

	if finishedAt.Valid {
		execution.FinishedAt = &finishedAt.Time
	}

	if len(currentContext) > 0 {
		if err := json.Unmarshal(currentContext, &execution.CurrentContext); err != nil {
			return nil, err
		}
	}

	if len(stepResults) > 0 {
		if err := json.Unmarshal(stepResults, &execution.StepResults); err != nil {
			return nil, err
		}
	}

	return &execution, nil
}

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

// WorkflowRepository stores workflow definitions. The node and edge sets are
// JSONB documents; the engine treats the graph as one unit and never queries
// individual nodes.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	nodes, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	edges, err := json.Marshal(workflow.Edges)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	_, err = wr.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, status, owner, webhook_path, nodes, edges, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			owner = EXCLUDED.owner,
			webhook_path = EXCLUDED.webhook_path,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			updated_at = EXCLUDED.updated_at
	`, workflow.ID, workflow.Name, workflow.Description, workflow.Status, workflow.Owner,
		workflow.WebhookPath, nodes, edges, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := wr.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, owner, webhook_path, nodes, edges, created_at, updated_at
		FROM workflows WHERE id = $1
	`, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (wr *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := wr.db.QueryContext(ctx, `
		SELECT id, name, description, status, owner, webhook_path, nodes, edges, created_at, updated_at
		FROM workflows ORDER BY created_at
	`)
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}
	defer rows.Close()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewWorkflowError("List", "", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewWorkflowError("List", "", err)
	}

	return workflows, nil
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := wr.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow    models.Workflow
		owner       sql.NullString
		webhookPath sql.NullString
		nodes       []byte
		edges       []byte
	)

	err := row.Scan(&workflow.ID, &workflow.Name, &workflow.Description, &workflow.Status,
		&owner, &webhookPath, &nodes, &edges, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	workflow.Owner = owner.String
	workflow.WebhookPath = webhookPath.String

	if err := json.Unmarshal(nodes, &workflow.Nodes); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(edges, &workflow.Edges); err != nil {
		return nil, err
	}

	return &workflow, nil
}

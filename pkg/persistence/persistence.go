// Package persistence provides the data storage abstraction layer for
// workflows, executions and usage rollups.
package persistence

import (
	"context"

	"github.com/strandworks/strand/pkg/models"
)

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores durable execution records. UpdateExecution is an
// upsert on the execution id so the durable step runner can checkpoint
// without caring whether the record exists yet.
type ExecutionRepository interface {
	SaveExecution(ctx context.Context, execution *models.Execution) error
	UpdateExecution(ctx context.Context, execution *models.Execution) error
	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)
}

// UsageRepository stores daily usage rollups per workspace. AddUsage upserts
// atomically on the (workspace, day) key; MonthlyUsage aggregates a calendar
// month (YYYY-MM) for the cost guard.
type UsageRepository interface {
	AddUsage(ctx context.Context, workspaceID, day string, usage models.Usage, llmCalls int) error
	MonthlyUsage(ctx context.Context, workspaceID, month string) (models.Usage, error)
	DailyRecords(ctx context.Context, workspaceID, month string) ([]*models.UsageRecord, error)
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	UsageRepository() UsageRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

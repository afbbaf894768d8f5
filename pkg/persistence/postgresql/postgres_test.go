package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/persistence"
	"github.com/strandworks/strand/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"usage_records", "executions", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("strand_test"),
			postgres.WithUsername("strand"),
			postgres.WithPassword("strand"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx
}

func TestWorkflowRepositoryLifecycle(t *testing.T) {
	p, ctx := setupTestDB(t)

	wf := &models.Workflow{
		ID:     uuid.New().String(),
		Name:   "Lead enrichment",
		Status: models.WorkflowStatusPublished,
		Owner:  "user-1",
		Nodes: []*models.WorkflowNode{
			{ID: "hook", Type: "trigger:webhook", Category: models.CategoryTrigger, Name: "Webhook", Config: map[string]any{"path": "/hooks/leads"}, Enabled: true},
			{ID: "enrich", Type: "transform", Category: models.CategoryAction, Name: "Enrich", Config: map[string]any{"expression": "{{ .data.email }}"}, Enabled: true},
		},
		Edges: []*models.WorkflowEdge{
			{ID: "e1", Source: "hook", Target: "enrich"},
		},
	}

	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	got, err := p.WorkflowRepository().GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lead enrichment", got.Name)
	require.Len(t, got.Nodes, 2)
	require.Len(t, got.Edges, 1)
	assert.Equal(t, models.CategoryTrigger, got.Nodes[0].Category)

	wf.Name = "Lead enrichment v2"
	require.NoError(t, p.WorkflowRepository().Save(ctx, wf))

	got, err = p.WorkflowRepository().GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lead enrichment v2", got.Name)

	list, err := p.WorkflowRepository().List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, p.WorkflowRepository().Delete(ctx, wf.ID))

	_, err = p.WorkflowRepository().GetByID(ctx, wf.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecutionRepositoryCheckpointing(t *testing.T) {
	p, ctx := setupTestDB(t)

	execution := &models.Execution{
		ID:         uuid.New().String(),
		WorkflowID: "wf-1",
		UserID:     "user-1",
		Status:     models.ExecutionRunning,
		CurrentContext: &models.WorkflowContext{
			ID:         "ctx-1",
			WorkflowID: "wf-1",
			Data:       models.Object{"email": models.String("a@b.com")},
		},
		StartedAt: time.Now().UTC(),
	}

	require.NoError(t, p.ExecutionRepository().SaveExecution(ctx, execution))

	execution.Status = models.ExecutionWaiting
	execution.WaitReason = "waiting for recording"
	execution.CacheStep("enrich", models.Object{"ok": models.Bool(true)})
	require.NoError(t, p.ExecutionRepository().UpdateExecution(ctx, execution))

	got, err := p.ExecutionRepository().ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionWaiting, got.Status)
	assert.Equal(t, "waiting for recording", got.WaitReason)
	require.NotNil(t, got.CurrentContext)
	assert.Equal(t, "a@b.com", got.CurrentContext.Data["email"].StringVal())

	cached, ok := got.CachedStep("enrich")
	require.True(t, ok)
	assert.True(t, cached["ok"].BoolVal())

	executions, err := p.ExecutionRepository().ExecutionsByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, executions, 1)

	_, err = p.ExecutionRepository().ExecutionByID(ctx, "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestUsageRepositoryAtomicRollup(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.UsageRepository()

	require.NoError(t, repo.AddUsage(ctx, "ws-1", "2026-08-01", models.Usage{TokensIn: 100, TokensOut: 40, CostUSD: 0.25}, 1))
	require.NoError(t, repo.AddUsage(ctx, "ws-1", "2026-08-01", models.Usage{TokensIn: 50, TokensOut: 10, CostUSD: 0.05}, 2))
	require.NoError(t, repo.AddUsage(ctx, "ws-1", "2026-08-15", models.Usage{TokensIn: 10, TokensOut: 5, CostUSD: 0.01}, 1))
	require.NoError(t, repo.AddUsage(ctx, "ws-1", "2026-07-31", models.Usage{CostUSD: 99}, 1))
	require.NoError(t, repo.AddUsage(ctx, "ws-2", "2026-08-01", models.Usage{CostUSD: 99}, 1))

	total, err := repo.MonthlyUsage(ctx, "ws-1", "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 160, total.TokensIn)
	assert.Equal(t, 55, total.TokensOut)
	assert.InDelta(t, 0.31, total.CostUSD, 1e-9)

	records, err := repo.DailyRecords(ctx, "ws-1", "2026-08")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2026-08-01", records[0].Day)
	assert.Equal(t, 3, records[0].LLMCalls)
}

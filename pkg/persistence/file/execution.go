package file

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/persistence"
)

// ExecutionRepository stores execution records as JSON files under
// <root>/executions/<id>.json.
type ExecutionRepository struct {
	root string
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) path(id string) string {
	return filepath.Join(er.root, "executions", id+".json")
}

func (er *ExecutionRepository) SaveExecution(_ context.Context, execution *models.Execution) error {
	execution.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	if err := os.WriteFile(er.path(execution.ID), data, 0o644); err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return nil
}

// UpdateExecution is an upsert: the whole record is rewritten.
func (er *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	return er.SaveExecution(ctx, execution)
}

func (er *ExecutionRepository) ExecutionByID(_ context.Context, id string) (*models.Execution, error) {
	data, err := os.ReadFile(er.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	var execution models.Execution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	root := os.DirFS(filepath.Join(er.root, "executions"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionsByWorkflow", "", err)
	}

	executions := make([]*models.Execution, 0)

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		execution, err := er.ExecutionByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.Before(executions[j].StartedAt)
	})

	return executions, nil
}

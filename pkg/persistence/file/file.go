// Package file provides file-based persistence for local development and
// tests. Records are JSON documents under a root directory.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/strandworks/strand/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	usageRepo     *UsageRepository
}

// NewPersistence creates file persistence rooted at the given directory. The
// "file://" scheme prefix is accepted and stripped.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	for _, dir := range []string{"workflows", "executions", "usage"} {
		if err := os.MkdirAll(cleanRoot+"/"+dir, 0o755); err != nil {
			return nil, err
		}
	}

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  NewWorkflowRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
		usageRepo:     NewUsageRepository(cleanRoot),
	}, nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) UsageRepository() persistence.UsageRepository {
	return fp.usageRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

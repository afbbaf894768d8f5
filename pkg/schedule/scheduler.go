// Package schedule runs cron-bound workflow triggers. Each published
// workflow's enabled schedule trigger nodes become cron entries; firing
// enqueues a run instead of executing inline, so a slow workflow never
// blocks the scheduler.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/persistence"
)

// Enqueuer submits one due workflow run. The scheduler never executes
// workflows itself.
type Enqueuer func(ctx context.Context, workflowID, nodeID string) error

// Binding is one schedule trigger node resolved to its cron expression.
type Binding struct {
	WorkflowID string
	NodeID     string
	CronExpr   string
}

// Key identifies the binding within the running cron set.
func (b Binding) Key() string {
	return b.WorkflowID + "/" + b.NodeID
}

// Bindings extracts the enabled schedule trigger bindings of a workflow.
// Disabled nodes and draft workflows yield none; an invalid cron expression
// is a configuration error.
func Bindings(workflow *models.Workflow) ([]Binding, error) {
	if workflow.Status != models.WorkflowStatusPublished {
		return nil, nil
	}

	bindings := make([]Binding, 0)

	for _, node := range workflow.Nodes {
		if node.Type != "trigger:schedule" || !node.Enabled {
			continue
		}

		cronExpr, _ := node.Config["cron"].(string)
		if cronExpr == "" {
			return nil, fmt.Errorf("schedule trigger %s in workflow %s has no cron expression", node.ID, workflow.ID)
		}

		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return nil, fmt.Errorf("invalid cron expression %q for trigger %s: %w", cronExpr, node.ID, err)
		}

		bindings = append(bindings, Binding{
			WorkflowID: workflow.ID,
			NodeID:     node.ID,
			CronExpr:   cronExpr,
		})
	}

	return bindings, nil
}

// Scheduler owns the cron runner and keeps its entries in sync with the
// workflow store.
type Scheduler struct {
	workflows persistence.WorkflowRepository
	enqueue   Enqueuer
	logger    *slog.Logger

	cron  *cron.Cron
	jobs  map[string]cron.EntryID
	mutex sync.Mutex
}

func NewScheduler(workflows persistence.WorkflowRepository, enqueue Enqueuer, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		workflows: workflows,
		enqueue:   enqueue,
		logger:    logger.With("module", "scheduler"),
		jobs:      make(map[string]cron.EntryID),
	}
}

// Start syncs bindings from the store and starts the cron runner. A firing
// still in flight suppresses the next one for the same entry.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if err := s.Sync(ctx); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "entries", len(s.jobs))

	return nil
}

// Sync reconciles cron entries with the current workflow store: new bindings
// are added, removed or disabled ones are dropped.
func (s *Scheduler) Sync(ctx context.Context) error {
	if s.cron == nil {
		return errors.New("scheduler is not started")
	}

	workflows, err := s.workflows.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	desired := make(map[string]Binding)

	for _, workflow := range workflows {
		bindings, err := Bindings(workflow)
		if err != nil {
			s.logger.ErrorContext(ctx, "Skipping workflow with invalid schedule", "workflow_id", workflow.ID, "error", err)

			continue
		}

		for _, binding := range bindings {
			desired[binding.Key()] = binding
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, entryID := range s.jobs {
		if _, keep := desired[key]; !keep {
			s.cron.Remove(entryID)
			delete(s.jobs, key)
			s.logger.InfoContext(ctx, "Removed schedule entry", "binding", key)
		}
	}

	for key, binding := range desired {
		if _, exists := s.jobs[key]; exists {
			continue
		}

		entryID, err := s.cron.AddFunc(binding.CronExpr, s.fire(binding))
		if err != nil {
			return fmt.Errorf("failed to add cron entry for %s: %w", key, err)
		}

		s.jobs[key] = entryID
		s.logger.InfoContext(ctx, "Added schedule entry", "binding", key, "cron", binding.CronExpr)
	}

	return nil
}

func (s *Scheduler) fire(binding Binding) func() {
	return func() {
		ctx := context.Background()

		err := s.enqueue(ctx, binding.WorkflowID, binding.NodeID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to enqueue scheduled run",
				"workflow_id", binding.WorkflowID,
				"node_id", binding.NodeID,
				"error", err,
			)

			return
		}

		s.logger.InfoContext(ctx, "Enqueued scheduled run",
			"workflow_id", binding.WorkflowID,
			"node_id", binding.NodeID,
		)
	}
}

// Entries returns the number of live cron entries.
func (s *Scheduler) Entries() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.jobs)
}

// Stop halts the cron runner, waiting for in-flight firings.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}

	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.InfoContext(ctx, "Scheduler stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

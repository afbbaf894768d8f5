// Package main provides the Strand scheduler: it turns schedule trigger
// nodes of published workflows into cron entries and enqueues due runs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/strandworks/strand/pkg/cmd"
	"github.com/strandworks/strand/pkg/log"
	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/schedule"
)

func main() {
	logger := log.WithModule("scheduler")

	command := &cli.Command{
		Name:                  "strand-scheduler",
		Usage:                 "Enqueue workflow runs on their cron schedules",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "queue-url",
				Usage:   "Job queue URL (redis://... or 'memory')",
				Value:   "memory",
				Sources: cli.EnvVars("QUEUE_URL"),
			},
			&cli.DurationFlag{
				Name:    "sync-interval",
				Usage:   "How often schedule bindings are reconciled with the store",
				Value:   time.Minute,
				Sources: cli.EnvVars("SYNC_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log output format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger.InfoContext(ctx, "Initializing Strand scheduler")

			persist, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persist.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			jobs, err := cmd.NewQueue(command.String("queue-url"), logger, 0)
			if err != nil {
				return err
			}

			workflows := persist.WorkflowRepository()

			enqueue := func(ctx context.Context, workflowID, nodeID string) error {
				workflow, err := workflows.GetByID(ctx, workflowID)
				if err != nil {
					return err
				}

				job := &models.QueuedJob{
					Kind:        models.JobWorkflowRun,
					WorkflowID:  workflowID,
					UserID:      workflow.Owner,
					TriggeredBy: models.TriggeredSchedule,
					Payload: models.Object{
						"trigger_node_id": models.String(nodeID),
					},
				}

				_, err = jobs.Enqueue(ctx, job)

				return err
			}

			scheduler := schedule.NewScheduler(workflows, enqueue, logger)
			if err := scheduler.Start(ctx); err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			ticker := time.NewTicker(command.Duration("sync-interval"))
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					if err := scheduler.Sync(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to sync schedule bindings", "error", err)
					}
				case <-sigChan:
					logger.InfoContext(ctx, "Shutting down scheduler")

					return scheduler.Stop(ctx)
				}
			}
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

// Package main provides the Strand worker: it drains the job queue and runs
// workflow executions durably.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/strandworks/strand/pkg/cmd"
	"github.com/strandworks/strand/pkg/eventbus"
	"github.com/strandworks/strand/pkg/log"
	"github.com/strandworks/strand/pkg/otelhelper"
	"github.com/strandworks/strand/pkg/services"
	"github.com/strandworks/strand/pkg/tools"
	"github.com/strandworks/strand/pkg/workflow"
)

const shutdownGrace = 30 * time.Second

func main() {
	command := &cli.Command{
		Name:                  "strand-worker",
		Usage:                 "Start workers to execute queued workflow runs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
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
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Number of concurrent job workers",
				Value:   4,
				Sources: cli.EnvVars("WORKERS"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing node and tool plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "llm-url",
				Usage:   "Base URL of the chat-completions endpoint for agent runs",
				Value:   "https://api.openai.com/v1",
				Sources: cli.EnvVars("LLM_URL"),
			},
			&cli.StringFlag{
				Name:    "llm-api-key",
				Usage:   "API key for the LLM provider",
				Sources: cli.EnvVars("LLM_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "llm-model",
				Usage:   "Model agents reason with",
				Value:   "gpt-4o-mini",
				Sources: cli.EnvVars("LLM_MODEL"),
			},
			&cli.FloatFlag{
				Name:    "cost-limit-usd",
				Usage:   "Monthly per-workspace LLM spend cap",
				Value:   100,
				Sources: cli.EnvVars("COST_LIMIT_USD"),
			},
			&cli.StringSliceFlag{
				Name:    "blocked-tools",
				Usage:   "Tool names safe mode refuses to invoke",
				Sources: cli.EnvVars("BLOCKED_TOOLS"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Strand worker")

			tracerProvider, err := otelhelper.InitTracer(ctx, "strand-worker")
			if err != nil {
				return err
			}

			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			registry, err := cmd.NewRegistry(logger, command.String("plugins-path"))
			if err != nil {
				return err
			}

			persist, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persist.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			bus, err := cmd.NewEventBus(command.String("event-bus"), "strand-worker", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			jobs, err := cmd.NewQueue(command.String("queue-url"), logger, command.Int("workers"))
			if err != nil {
				return err
			}

			llmClient, err := cmd.NewLLMClient(
				command.String("llm-url"),
				command.String("llm-api-key"),
				command.String("llm-model"),
			)
			if err != nil {
				return err
			}

			agents := services.NewAgents(llmClient, registry, persist, jobs, logger,
				services.WithMonthlyCostLimit(command.Float("cost-limit-usd")),
				services.WithBlockedTools(command.StringSlice("blocked-tools")),
				services.WithAgentEventBus(bus),
			)

			executor := workflow.NewExecutor(registry, eventbus.NewBusStatusPublisher(bus, logger), logger)
			executions := services.NewExecution(persist, executor, jobs, logger,
				services.WithEventBus(bus),
				services.WithAgents(agents),
			)

			// The run_workflow tool needs an executing runner, so it is
			// registered after the service exists. Agent gateways pick it up
			// from the registry at run time.
			registry.RegisterTool(tools.NewRunWorkflowTool(executions))

			if err := jobs.Start(ctx, executions.HandleJob); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Worker started successfully")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			<-sigChan
			logger.InfoContext(ctx, "Shutting down worker")

			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()

			return jobs.Stop(stopCtx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

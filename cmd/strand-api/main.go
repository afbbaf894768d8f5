package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/strandworks/strand/pkg/cmd"
	"github.com/strandworks/strand/pkg/eventbus"
	"github.com/strandworks/strand/pkg/log"
	"github.com/strandworks/strand/pkg/services"
	"github.com/strandworks/strand/pkg/tools"
	"github.com/strandworks/strand/pkg/workflow"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "strand-api",
		Usage:                 "Manage workflows and request executions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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
			&cli.DurationFlag{
				Name:    "sync-timeout",
				Usage:   "Wall-clock limit for synchronous workflow runs",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("SYNC_TIMEOUT"),
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

			logger.InfoContext(ctx, "Initializing Strand API")

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

			bus, err := cmd.NewEventBus(command.String("event-bus"), "strand-api", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			jobs, err := cmd.NewQueue(command.String("queue-url"), logger, 0)
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
				services.WithSyncTimeout(command.Duration("sync-timeout")),
				services.WithEventBus(bus),
				services.WithAgents(agents),
			)

			// The run_workflow tool needs an executing runner, so it is
			// registered after the service exists. Agent gateways pick it up
			// from the registry at run time.
			registry.RegisterTool(tools.NewRunWorkflowTool(executions))

			api := NewAPI(logger, persist, registry, executions, agents, jobs)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

// Package main provides the Strand API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/strandworks/strand/pkg/persistence"
	"github.com/strandworks/strand/pkg/queue"
	"github.com/strandworks/strand/pkg/registry"
	"github.com/strandworks/strand/pkg/services"
	"github.com/strandworks/strand/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	executions  *services.Execution
	agents      *services.Agents
	jobs        queue.Queue
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persist persistence.Persistence,
	registry *registry.Registry,
	executions *services.Execution,
	agents *services.Agents,
	jobs queue.Queue,
) *API {
	return &API{
		logger:      logger,
		persistence: persist,
		registry:    registry,
		executions:  executions,
		agents:      agents,
		jobs:        jobs,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.executions, a.agents, a.persistence, a.jobs, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Strand API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/publish", handlers.PublishWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Post("/:id/enqueue", handlers.EnqueueWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/resume", handlers.ResumeExecution)

	ag := app.Group("/agents")
	ag.Post("/execute", handlers.ExecuteAgent)
	ag.Post("/enqueue", handlers.EnqueueAgent)

	app.Get("/jobs/:id", handlers.GetJob)
	app.Get("/queue/stats", handlers.GetQueueStats)
	app.Get("/queue/dead", handlers.GetDeadJobs)

	app.Post("/hooks/:path", handlers.Webhook)

	app.Get("/registry/node-types", handlers.GetNodeTypes)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

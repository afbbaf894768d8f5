package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/strandworks/strand/pkg/middleware"
	"github.com/strandworks/strand/pkg/persistence"
	"github.com/strandworks/strand/pkg/queue"
	"github.com/strandworks/strand/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsSyncTimeout(err):
		problem := problems.NewStatusProblem(504).
			WithInstance(c.Path()).
			WithType("sync_timeout").
			WithDetail(err.Error())

		return c.Status(fiber.StatusGatewayTimeout).JSON(problem)

	case services.IsExecutionNotWaiting(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("execution_not_waiting").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case middleware.IsCostLimitExceeded(err):
		problem := problems.NewStatusProblem(402).
			WithInstance(c.Path()).
			WithType("cost_limit_exceeded").
			WithDetail(err.Error())

		return c.Status(fiber.StatusPaymentRequired).JSON(problem)

	case middleware.IsSafeModeBlocked(err):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("safe_mode_blocked").
			WithDetail(err.Error())

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case persistence.IsWorkflowNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("workflow_not_found").
			WithDetail("workflow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsExecutionNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("execution_not_found").
			WithDetail("execution not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, queue.ErrJobNotFound):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("job_not_found").
			WithDetail("job not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}

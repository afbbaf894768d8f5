// Package web provides the HTTP handlers for the execution API.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/persistence"
	"github.com/strandworks/strand/pkg/queue"
	"github.com/strandworks/strand/pkg/registry"
	"github.com/strandworks/strand/pkg/services"
)

type APIHandlers struct {
	executions  *services.Execution
	agents      *services.Agents
	persistence persistence.Persistence
	jobs        queue.Queue
	validator   *validator.Validate
	registry    *registry.Registry
}

func NewAPIHandlers(
	executions *services.Execution,
	agents *services.Agents,
	persist persistence.Persistence,
	jobs queue.Queue,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		executions:  executions,
		agents:      agents,
		persistence: persist,
		jobs:        jobs,
		validator:   validator,
		registry:    registry,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.WorkflowRepository().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.persistence.WorkflowRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Owner:       req.Owner,
		WebhookPath: req.WebhookPath,
		Status:      models.WorkflowStatusDraft,
		Nodes:       []*models.WorkflowNode{},
		Edges:       []*models.WorkflowEdge{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.persistence.WorkflowRepository().Save(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.persistence.WorkflowRepository().Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PublishWorkflow validates the graph and flips the workflow to published.
// Only published workflows are reachable through webhooks and the scheduler.
func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.persistence.WorkflowRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := workflow.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	workflow.Status = models.WorkflowStatusPublished
	workflow.UpdatedAt = time.Now().UTC()

	if err := h.persistence.WorkflowRepository().Save(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflow)
}

// ExecuteWorkflow runs a workflow synchronously and returns the final
// context data, or 504 when the run outlives the sync timeout.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req ExecuteWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.executions.ExecuteWorkflowSync(
		c.Context(),
		id,
		req.UserID,
		models.ObjectFromAny(req.Data),
		models.ObjectFromAny(req.Memory),
		models.ObjectFromAny(req.AgentMemory),
	)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ExecuteResponse{Data: result.ToAny()})
}

// EnqueueWorkflow queues a durable run and acknowledges with the job id.
func (h *APIHandlers) EnqueueWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req EnqueueWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	jobID, err := h.executions.EnqueueWorkflowExecution(
		c.Context(), id, req.UserID, models.ObjectFromAny(req.Data), models.TriggeredManual)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(JobResponse{JobID: jobID})
}

// ResumeExecution merges the request data into a waiting execution and
// queues it to continue.
// ExecuteAgent runs an agent conversation inside the request. Policy aborts
// surface as their own problem types: 402 for the cost guard, 403 for safe
// mode.
func (h *APIHandlers) ExecuteAgent(c fiber.Ctx) error {
	var req ExecuteAgentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.agents.ExecuteAgent(c.Context(), agentRunContext(req), req.Prompt)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// EnqueueAgent submits a durable agent run.
func (h *APIHandlers) EnqueueAgent(c fiber.Ctx) error {
	var req ExecuteAgentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	jobID, err := h.agents.EnqueueAgentExecution(c.Context(), agentRunContext(req), req.Prompt)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(JobResponse{JobID: jobID})
}

func agentRunContext(req ExecuteAgentRequest) models.RunContext {
	return models.RunContext{
		AgentID:     req.AgentID,
		UserID:      req.UserID,
		WorkspaceID: req.WorkspaceID,
		Model:       req.Model,
		Temperature: req.Temperature,
		SafeMode:    req.SafeMode,
	}
}

func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req ResumeExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	jobID, err := h.executions.ResumeWorkflow(c.Context(), id, models.ObjectFromAny(req.Data))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(JobResponse{JobID: jobID})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executions.ExecutionStatus(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	executions, err := h.persistence.ExecutionRepository().ExecutionsByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetJob(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Job ID is required")
	}

	job, err := h.jobs.Job(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(job)
}

func (h *APIHandlers) GetQueueStats(c fiber.Ctx) error {
	counts, err := h.jobs.Counts(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(counts)
}

func (h *APIHandlers) GetDeadJobs(c fiber.Ctx) error {
	dead, err := h.jobs.DeadJobs(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"jobs":        dead,
		"total_count": len(dead),
	})
}

// Webhook accepts an external event and queues the published workflow bound
// to the hook path. The run happens on the worker, never inline.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	path := c.Params("path")
	if path == "" {
		return badRequest(c, "Hook path is required")
	}

	workflow, err := h.workflowByHookPath(c, path)
	if err != nil {
		return internalError(c, err)
	}

	if workflow == nil {
		return notFound(c, "no published workflow bound to hook path")
	}

	payload := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&payload); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	jobID, err := h.executions.EnqueueWorkflowExecution(
		c.Context(), workflow.ID, workflow.Owner, models.ObjectFromAny(payload), models.TriggeredWebhook)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(JobResponse{JobID: jobID})
}

func (h *APIHandlers) workflowByHookPath(c fiber.Ctx, path string) (*models.Workflow, error) {
	workflows, err := h.persistence.WorkflowRepository().List(c.Context())
	if err != nil {
		return nil, err
	}

	for _, wf := range workflows {
		if wf.Status != models.WorkflowStatusPublished {
			continue
		}

		if wf.WebhookPath == path || wf.WebhookPath == "/"+path {
			return wf, nil
		}
	}

	return nil, nil
}

// GetNodeTypes lists the registered node types with their config schemas.
func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	types := h.registry.NodeTypes()

	schemas := make([]fiber.Map, 0, len(types))
	for _, nodeType := range types {
		schemas = append(schemas, fiber.Map{
			"type":   nodeType,
			"schema": h.registry.NodeSchema(nodeType),
		})
	}

	return c.JSON(fiber.Map{"node_types": schemas})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

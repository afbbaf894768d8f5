package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/strandworks/strand/pkg/models"
	"github.com/strandworks/strand/pkg/otelhelper"
	"github.com/strandworks/strand/pkg/protocol"
)

// Registry resolves node types to executors. A lookup miss is an
// unrecoverable configuration error for that node.
type Registry interface {
	CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.NodeExecutor, error)
	NodeSchema(nodeType string) map[string]any
}

// Executor runs a workflow graph against a seeded context, in dependency
// order, via the registry. Execution mode (synchronous pass-through vs
// durable/retrying) is selected by the step runner handed to Run.
type Executor struct {
	registry  Registry
	publisher protocol.StatusPublisher
	logger    *slog.Logger
}

// NewExecutor creates the executor over the registry and status publisher.
func NewExecutor(registry Registry, publisher protocol.StatusPublisher, logger *slog.Logger) *Executor {
	return &Executor{
		registry:  registry,
		publisher: publisher,
		logger:    logger.With("module", "workflow_executor"),
	}
}

// Run executes every non-trigger node of the workflow in topological order,
// threading the mutable context. Nodes already completed in the context (a
// resumed execution) are skipped. On executor failure the remainder of the
// graph is abandoned and the failing node reported.
//
// A *PauseError from a node suspends the run: the context keeps the exact
// snapshot including completed nodes, and the error propagates for the caller
// to persist.
func (e *Executor) Run(ctx context.Context, wf *models.Workflow, wctx *models.WorkflowContext, steps protocol.StepRunner) error {
	order, err := TopoSort(wf.Nodes, wf.Edges)
	if err != nil {
		return err
	}

	ctx, span := otelhelper.StartSpan(ctx, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.ExecutionIDKey, wctx.ID),
	)
	defer span.End()

	for _, nodeID := range order {
		node := wf.Node(nodeID)

		// Trigger nodes mark where data enters; they carry no behavior.
		if node.Category == models.CategoryTrigger {
			continue
		}

		if wctx.Completed(nodeID) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.runNode(ctx, node, wctx, steps); err != nil {
			if IsPause(err) {
				e.logger.InfoContext(ctx, "workflow paused",
					"workflow_id", wf.ID,
					"execution_id", wctx.ID,
					"node_id", nodeID,
				)

				return err
			}

			e.publish(ctx, wctx.ID, nodeID, protocol.NodeError, err.Error())
			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, nodeID))

			return err
		}
	}

	return nil
}

func (e *Executor) runNode(ctx context.Context, node *models.WorkflowNode, wctx *models.WorkflowContext, steps protocol.StepRunner) error {
	if err := e.validateConfig(node); err != nil {
		return err
	}

	executor, err := e.registry.CreateNode(ctx, node.Type, node.ID, node.Config)
	if err != nil {
		return &UnknownNodeTypeError{NodeID: node.ID, Type: node.Type}
	}

	e.publish(ctx, wctx.ID, node.ID, protocol.NodeLoading, "")

	output, err := steps.Run(ctx, node.ID, func(stepCtx context.Context) (models.Object, error) {
		return executor.Execute(stepCtx, wctx)
	})
	if err != nil {
		if IsPause(err) {
			return err
		}

		return &NodeExecutionError{NodeID: node.ID, Err: err}
	}

	// The node's output becomes part of the running context: recorded under
	// the node id and deep-merged into the shared data.
	wctx.MarkCompleted(node.ID, output)
	wctx.Data = models.Merge(wctx.Data, output)

	e.publish(ctx, wctx.ID, node.ID, protocol.NodeSuccess, "")

	return nil
}

func (e *Executor) validateConfig(node *models.WorkflowNode) error {
	schema := e.registry.NodeSchema(node.Type)
	if schema == nil {
		return nil
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return &ConfigError{NodeID: node.ID, Detail: err.Error()}
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return &ConfigError{NodeID: node.ID, Detail: strings.Join(details, "; ")}
	}

	return nil
}

func (e *Executor) publish(ctx context.Context, executionID, nodeID string, status protocol.NodeStatus, errText string) {
	if e.publisher == nil {
		return
	}

	e.publisher.PublishNodeStatus(ctx, executionID, nodeID, status, errText)
}

// ResumeContext deep-merges late-arriving data into the exact context
// snapshot recorded at pause time. Resuming with empty merge data restores
// the snapshot unchanged; completed nodes are never re-run.
func ResumeContext(execution *models.Execution, mergeData models.Object) (*models.WorkflowContext, error) {
	if execution.CurrentContext == nil {
		return nil, fmt.Errorf("execution %s has no saved context", execution.ID)
	}

	wctx := execution.CurrentContext.Clone()
	wctx.Data = models.Merge(wctx.Data, mergeData)

	return wctx, nil
}

// MarshalContext serializes a context snapshot for durable storage. The
// round-trip through ResumeContext must not lose keys untouched by a merge.
func MarshalContext(wctx *models.WorkflowContext) ([]byte, error) {
	return json.Marshal(wctx)
}

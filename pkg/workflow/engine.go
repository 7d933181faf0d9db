// Package workflow implements the execution engine: breadth-first traversal
// of a node graph with conditional branch routing, verbatim event relay, and
// a durable checkpoint after every completed node so a suspended execution
// can resume without re-running finished work.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Joe-rq/agent-flow-lite/pkg/eventbus"
	"github.com/Joe-rq/agent-flow-lite/pkg/events"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/nodes/condition"
	"github.com/Joe-rq/agent-flow-lite/pkg/otelhelper"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
	"github.com/Joe-rq/agent-flow-lite/pkg/registry"
)

// Engine owns the execution record and context for the duration of one
// Execute or Resume call; the caller owns the transport that delivers the
// returned events.
type Engine struct {
	logger   *slog.Logger
	store    persistence.Persistence
	registry *registry.Registry
	deps     protocol.Dependencies
	bus      eventbus.EventPublisher
	tracer   trace.Tracer
}

func NewEngine(logger *slog.Logger, store persistence.Persistence, reg *registry.Registry, deps protocol.Dependencies) *Engine {
	return &Engine{
		logger:   logger.With("module", "workflow_engine"),
		store:    store,
		registry: reg,
		deps:     deps,
		tracer:   noop.NewTracerProvider().Tracer("workflow"),
	}
}

// WithEventBus attaches a lifecycle notification publisher. Publish failures
// are logged and never affect the execution.
func (e *Engine) WithEventBus(bus eventbus.EventPublisher) *Engine {
	e.bus = bus
	return e
}

func (e *Engine) notify(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.Warn("failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}

// WithTracer attaches a span emitter. A nil tracer is ignored.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	if tracer != nil {
		e.tracer = tracer
	}

	return e
}

// ExecuteRequest carries the caller-supplied parameters of a fresh run.
type ExecuteRequest struct {
	InitialInput string
	UserID       string
	Model        string
	History      []models.Message

	// ExecutionID is generated when blank.
	ExecutionID string
}

// Execute runs a workflow from its start nodes. Events arrive in traversal
// order: everything a node yields is forwarded verbatim before any event of
// a node it enqueued.
func (e *Engine) Execute(ctx context.Context, wf *models.Workflow, req ExecuteRequest) <-chan models.Event {
	out := make(chan models.Event, 16)

	go func() {
		defer close(out)
		e.execute(ctx, out, wf, req)
	}()

	return out
}

func (e *Engine) execute(ctx context.Context, out chan<- models.Event, wf *models.Workflow, req ExecuteRequest) {
	executionID := req.ExecutionID
	if executionID == "" {
		executionID = uuid.NewString()
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.WorkflowNameKey, wf.Name),
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.UserIDKey, req.UserID),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", wf.ID, "execution_id", executionID)
	logger.Info("starting workflow execution")

	if !protocol.Emit(ctx, out, models.NewWorkflowStart(wf.ID, wf.Name, executionID, false)) {
		return
	}

	startNodes := wf.StartNodes()
	if len(startNodes) == 0 {
		protocol.Emit(ctx, out, models.NewWorkflowError("workflow has no start node"))
		return
	}

	g := buildGraph(wf)
	if g.hasCycle() {
		protocol.Emit(ctx, out, models.NewWorkflowError("workflow graph contains a cycle"))
		return
	}

	now := time.Now().UTC()
	exec := &models.Execution{
		ID:           executionID,
		WorkflowID:   wf.ID,
		UserID:       req.UserID,
		Status:       models.ExecutionStatusRunning,
		InitialInput: req.InitialInput,
		Model:        req.Model,
		Queue:        startNodes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ec := models.NewExecutionContext(req.InitialInput, req.UserID, req.Model)
	ec.ConversationHistory = req.History

	if err := e.checkpoint(ctx, exec, ec, models.ExecutionStatusRunning); err != nil {
		logger.Error("failed to create execution record", "error", err)
		protocol.Emit(ctx, out, models.NewWorkflowError(fmt.Sprintf("failed to create execution record: %v", err)))

		return
	}

	e.notify(ctx, wf.ID, events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, wf.ID),
		ExecutionID:  exec.ID,
		WorkflowName: wf.Name,
	})

	e.run(ctx, out, logger, g, exec, ec, now)
}

// Resume re-enters the traversal loop of a suspended execution from its
// stored frontier. Completed executions are refused.
func (e *Engine) Resume(ctx context.Context, executionID string) <-chan models.Event {
	out := make(chan models.Event, 16)

	go func() {
		defer close(out)
		e.resume(ctx, out, executionID)
	}()

	return out
}

func (e *Engine) resume(ctx context.Context, out chan<- models.Event, executionID string) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.resume",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
	)
	defer span.End()

	logger := e.logger.With("execution_id", executionID)

	exec, err := e.store.ExecutionByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, persistence.ErrExecutionNotFound) {
			protocol.Emit(ctx, out, models.NewWorkflowError(fmt.Sprintf("execution %s not found", executionID)))
		} else {
			logger.Error("failed to load execution", "error", err)
			protocol.Emit(ctx, out, models.NewWorkflowError(fmt.Sprintf("failed to load execution: %v", err)))
		}

		return
	}

	if exec.Status == models.ExecutionStatusCompleted {
		protocol.Emit(ctx, out, models.NewWorkflowError(fmt.Sprintf("execution %s already completed", executionID)))
		return
	}

	wf, err := e.store.WorkflowByID(ctx, exec.WorkflowID)
	if err != nil {
		logger.Error("failed to load workflow for resume", "workflow_id", exec.WorkflowID, "error", err)
		protocol.Emit(ctx, out, models.NewWorkflowError(fmt.Sprintf("failed to load workflow %s: %v", exec.WorkflowID, err)))

		return
	}

	logger = logger.With("workflow_id", wf.ID)
	logger.Info("resuming workflow execution", "executed_nodes", len(exec.ExecutedNodes), "queued", len(exec.Queue))

	ec := models.ContextFromCheckpoint(models.ContextCheckpoint{
		Variables:   exec.Variables,
		StepOutputs: exec.StepOutputs,
	}, exec.InitialInput, exec.UserID, exec.Model)

	if err := e.checkpoint(ctx, exec, ec, models.ExecutionStatusRunning); err != nil {
		logger.Error("failed to reopen execution record", "error", err)
		protocol.Emit(ctx, out, models.NewWorkflowError(fmt.Sprintf("failed to reopen execution record: %v", err)))

		return
	}

	if !protocol.Emit(ctx, out, models.NewWorkflowStart(wf.ID, wf.Name, exec.ID, true)) {
		return
	}

	e.notify(ctx, wf.ID, events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, wf.ID),
		ExecutionID:  exec.ID,
		WorkflowName: wf.Name,
		Resumed:      true,
	})

	e.run(ctx, out, logger, buildGraph(wf), exec, ec, time.Now().UTC())
}

// run is the BFS loop shared by fresh and resumed executions. exec carries
// the live frontier: Queue is always exactly the not-yet-visited node ids
// and ExecutedNodes only grows.
func (e *Engine) run(ctx context.Context, out chan<- models.Event, logger *slog.Logger, g *graph, exec *models.Execution, ec *models.ExecutionContext, startedAt time.Time) {
	executed := make(map[string]bool, len(exec.ExecutedNodes))
	for _, id := range exec.ExecutedNodes {
		executed[id] = true
	}

	lastExecuted := ""
	if len(exec.ExecutedNodes) > 0 {
		lastExecuted = exec.ExecutedNodes[len(exec.ExecutedNodes)-1]
	}

	for len(exec.Queue) > 0 {
		// The head stays in the stored queue until the node finishes, so a
		// failed checkpoint still names it as the next node to visit.
		nodeID := exec.Queue[0]

		if executed[nodeID] {
			exec.Queue = exec.Queue[1:]
			continue
		}

		node, ok := g.workflow.NodeByID(nodeID)
		if !ok {
			e.abort(ctx, out, logger, exec, ec, startedAt, fmt.Sprintf("node %s not found in workflow", nodeID))
			return
		}

		executor, err := e.registry.CreateExecutor(node.Type, e.deps)
		if err != nil {
			e.abort(ctx, out, logger, exec, ec, startedAt, fmt.Sprintf("failed to create executor for node %s: %v", nodeID, err))
			return
		}

		logger.Info("executing node", "node_id", nodeID, "node_type", node.Type)

		nodeCtx, span := otelhelper.StartSpan(ctx, e.tracer, "node.execute",
			attribute.String(otelhelper.ExecutionIDKey, exec.ID),
			attribute.String(otelhelper.NodeIDKey, nodeID),
			attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
		)

		finished := false

		for event := range executor.Execute(nodeCtx, node, ec, g.input) {
			if !protocol.Emit(ctx, out, event) {
				span.End()
				return
			}

			switch event.Type {
			case models.EventNodeError:
				message, _ := event.Data["error"].(string)
				otelhelper.SetError(span, errors.New(message))
				span.End()
				e.abort(ctx, out, logger, exec, ec, startedAt, message)

				return

			case models.EventWorkflowComplete:
				finished = true
			}
		}

		span.End()

		if finished {
			if err := e.checkpoint(ctx, exec, ec, models.ExecutionStatusCompleted); err != nil {
				logger.Error("failed to persist completed checkpoint", "error", err)
			}

			logger.Info("workflow execution completed", "node_id", nodeID)

			e.notify(ctx, exec.WorkflowID, events.ExecutionCompleted{
				BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, exec.WorkflowID),
				ExecutionID: exec.ID,
				DurationMs:  time.Since(startedAt).Milliseconds(),
				FinalOutput: ec.StepOutputs[nodeID],
			})

			return
		}

		executed[nodeID] = true
		exec.ExecutedNodes = append(exec.ExecutedNodes, nodeID)
		lastExecuted = nodeID

		branchFilter := ""
		if node.Type == models.NodeTypeCondition {
			branchFilter = "false"
			if taken, _ := ec.Variables[condition.BranchVariable(nodeID)].(bool); taken {
				branchFilter = "true"
			}
		}

		queue := append([]string{}, exec.Queue[1:]...)

		// Absent handles pass through on any branch; a handle on an edge
		// leaving a non-condition node never matches.
		for _, edge := range g.outgoing[nodeID] {
			if edge.SourceHandle != "" && edge.SourceHandle != branchFilter {
				continue
			}

			if !executed[edge.Target] {
				queue = append(queue, edge.Target)
			}
		}

		exec.Queue = queue

		if err := e.checkpoint(ctx, exec, ec, models.ExecutionStatusRunning); err != nil {
			logger.Error("failed to persist checkpoint", "node_id", nodeID, "error", err)
			protocol.Emit(ctx, out, models.NewWorkflowError(fmt.Sprintf("failed to persist checkpoint: %v", err)))

			return
		}
	}

	// The queue drained without an end node firing.
	var finalOutput any
	if lastExecuted != "" {
		finalOutput = ec.StepOutputs[lastExecuted]
	}

	if err := e.checkpoint(ctx, exec, ec, models.ExecutionStatusCompleted); err != nil {
		logger.Error("failed to persist completed checkpoint", "error", err)
	}

	logger.Info("workflow execution completed", "last_executed", lastExecuted)

	e.notify(ctx, exec.WorkflowID, events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, exec.WorkflowID),
		ExecutionID: exec.ID,
		DurationMs:  time.Since(startedAt).Milliseconds(),
		FinalOutput: finalOutput,
	})

	protocol.Emit(ctx, out, models.NewWorkflowComplete(finalOutput))
}

// abort persists a failed checkpoint before the terminal event goes out, so
// a caller that sees workflow_error can trust the stored status.
func (e *Engine) abort(ctx context.Context, out chan<- models.Event, logger *slog.Logger, exec *models.Execution, ec *models.ExecutionContext, startedAt time.Time, message string) {
	logger.Error("workflow execution failed", "error", message)

	if err := e.checkpoint(ctx, exec, ec, models.ExecutionStatusFailed); err != nil {
		logger.Error("failed to persist failed checkpoint", "error", err)
	}

	e.notify(ctx, exec.WorkflowID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, exec.WorkflowID),
		ExecutionID: exec.ID,
		Error:       message,
		DurationMs:  time.Since(startedAt).Milliseconds(),
	})

	protocol.Emit(ctx, out, models.NewWorkflowError(message))
}

func (e *Engine) checkpoint(ctx context.Context, exec *models.Execution, ec *models.ExecutionContext, status models.ExecutionStatus) error {
	cp := ec.Checkpoint()

	exec.Variables = cp.Variables
	exec.StepOutputs = cp.StepOutputs
	exec.Status = status
	exec.UpdatedAt = time.Now().UTC()

	return e.store.SaveExecution(ctx, exec)
}

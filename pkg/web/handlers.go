package web

import (
	"bufio"
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/Joe-rq/agent-flow-lite/pkg/eventbus"
	"github.com/Joe-rq/agent-flow-lite/pkg/events"
	"github.com/Joe-rq/agent-flow-lite/pkg/flags"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/services"
	"github.com/Joe-rq/agent-flow-lite/pkg/sse"
	"github.com/Joe-rq/agent-flow-lite/pkg/workflow"
)

// StreamTimeout bounds one execute/resume stream end to end.
const StreamTimeout = 300 * time.Second

var knownFlags = map[string]bool{
	flags.EnableHTTPNode: true,
	flags.EnableCodeNode: true,
}

type APIHandlers struct {
	logger           *slog.Logger
	workflowService  *services.Workflow
	executionService *services.Execution
	skillService     *services.Skill
	flags            *flags.Store
	validator        *validator.Validate
	bus              eventbus.EventPublisher
	stream           *sse.Writer
}

func NewAPIHandlers(
	logger *slog.Logger,
	workflowService *services.Workflow,
	executionService *services.Execution,
	skillService *services.Skill,
	flagStore *flags.Store,
	validate *validator.Validate,
	bus eventbus.EventPublisher,
) *APIHandlers {
	return &APIHandlers{
		logger:           logger.With("module", "web"),
		workflowService:  workflowService,
		executionService: executionService,
		skillService:     skillService,
		flags:            flagStore,
		validator:        validate,
		bus:              bus,
		stream:           sse.NewWriter(sse.DefaultHeartbeat),
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	saved, err := h.workflowService.Save(c.Context(), &models.Workflow{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		UserID:      req.UserID,
		GraphData:   req.GraphData,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	h.publish(c.Context(), saved.ID, events.WorkflowSaved{
		BaseEvent: events.NewBaseEvent(events.WorkflowSavedEvent, saved.ID),
		Name:      saved.Name,
	})

	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.workflowService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	h.publish(c.Context(), id, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id),
	})

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow starts an execution and streams its events as SSE. Errors
// after the stream opens travel on the stream, not as HTTP statuses.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return badRequest(c, "invalid request body: "+err.Error())
		}
	}

	// The stream writer outlives the handler; the request context does not.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Context()), StreamTimeout)

	eventStream, err := h.executionService.Start(ctx, c.Params("id"), workflow.ExecuteRequest{
		InitialInput: req.Input,
		UserID:       req.UserID,
		Model:        req.Model,
		History:      req.History,
		ExecutionID:  req.ExecutionID,
	})
	if err != nil {
		cancel()
		return handleServiceError(c, err)
	}

	return h.streamEvents(c, ctx, cancel, eventStream)
}

// ResumeExecution re-attaches to a suspended execution and streams from the
// stored checkpoint. Missing or completed executions are reported on the
// stream as workflow_error.
func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Context()), StreamTimeout)

	eventStream := h.executionService.Resume(ctx, c.Params("id"))

	return h.streamEvents(c, ctx, cancel, eventStream)
}

func (h *APIHandlers) streamEvents(c fiber.Ctx, ctx context.Context, cancel context.CancelFunc, eventStream <-chan models.Event) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		if err := h.stream.Stream(ctx, w, eventStream); err != nil {
			h.logger.Warn("event stream ended early", "error", err)
		}

		// Unblock the producer if the transport died mid-stream.
		cancel()
		for range eventStream {
		}
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	exec, err := h.executionService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(exec)
}

func (h *APIHandlers) GetSkills(c fiber.Ctx) error {
	skills, err := h.skillService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"skills": skills})
}

func (h *APIHandlers) GetSkill(c fiber.Ctx) error {
	sk, err := h.skillService.Get(c.Context(), c.Params("name"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(sk)
}

func (h *APIHandlers) CreateSkill(c fiber.Ctx) error {
	var req CreateSkillRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	saved, err := h.skillService.Save(c.Context(), &models.Skill{
		Name:          req.Name,
		Description:   req.Description,
		Prompt:        req.Prompt,
		Inputs:        req.Inputs,
		KnowledgeBase: req.KnowledgeBase,
		Model:         req.Model,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *APIHandlers) GetFlag(c fiber.Ctx) error {
	key := c.Params("key")
	if !knownFlags[key] {
		return notFound(c, "unknown feature flag")
	}

	return c.JSON(FlagResponse{Key: key, Enabled: h.flags.Enabled(c.Context(), key)})
}

func (h *APIHandlers) SetFlag(c fiber.Ctx) error {
	key := c.Params("key")
	if !knownFlags[key] {
		return notFound(c, "unknown feature flag")
	}

	var req SetFlagRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	if err := h.flags.Set(c.Context(), key, req.Enabled); err != nil {
		return internalError(c, err)
	}

	return c.JSON(FlagResponse{Key: key, Enabled: req.Enabled})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.workflowService.HealthCheck(c.Context())
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": message})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *APIHandlers) publish(ctx context.Context, key string, event eventbus.Event) {
	if h.bus == nil {
		return
	}

	if err := h.bus.Publish(ctx, key, event); err != nil {
		h.logger.Warn("failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// Package main provides the agentflow API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/Joe-rq/agent-flow-lite/pkg/eventbus"
	"github.com/Joe-rq/agent-flow-lite/pkg/flags"
	"github.com/Joe-rq/agent-flow-lite/pkg/knowledge"
	"github.com/Joe-rq/agent-flow-lite/pkg/llm"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
	"github.com/Joe-rq/agent-flow-lite/pkg/registry"
	"github.com/Joe-rq/agent-flow-lite/pkg/services"
	"github.com/Joe-rq/agent-flow-lite/pkg/skill"
	"github.com/Joe-rq/agent-flow-lite/pkg/web"
	"github.com/Joe-rq/agent-flow-lite/pkg/workflow"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	registry     *registry.Registry
	eventBus     eventbus.EventBus
	flags        *flags.Store
	llm          llm.Streamer
	allowDomains []string
	tracer       trace.Tracer
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	flagStore *flags.Store,
	llmClient llm.Streamer,
	allowDomains []string,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		registry:     registry,
		eventBus:     eventBus,
		flags:        flagStore,
		llm:          llmClient,
		allowDomains: allowDomains,
		tracer:       tracer,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	searcher := knowledge.NewMemoryStore()
	loader := persistence.SkillLoader{Store: a.persistence}
	runner := skill.NewExecutor(a.logger, a.llm, searcher)

	engine := workflow.NewEngine(a.logger, a.persistence, a.registry, protocol.Dependencies{
		Logger:       a.logger,
		LLM:          a.llm,
		Knowledge:    searcher,
		Skills:       loader,
		SkillRunner:  runner,
		Flags:        a.flags,
		AllowDomains: a.allowDomains,
	}).WithEventBus(a.eventBus).WithTracer(a.tracer)

	workflowService := services.NewWorkflow(a.persistence, a.registry)
	executionService := services.NewExecution(a.persistence, engine)
	skillService := services.NewSkill(a.persistence)

	handlers := web.NewAPIHandlers(a.logger, workflowService, executionService, skillService, a.flags, a.validate, a.eventBus)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Agentflow API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/resume", handlers.ResumeExecution)

	s := app.Group("/skills")
	s.Get("/", handlers.GetSkills)
	s.Post("/", handlers.CreateSkill)
	s.Get("/:name", handlers.GetSkill)

	f := app.Group("/admin/flags")
	f.Get("/:key", handlers.GetFlag)
	f.Put("/:key", handlers.SetFlag)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}

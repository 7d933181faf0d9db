package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/Joe-rq/agent-flow-lite/pkg/cmd"
	"github.com/Joe-rq/agent-flow-lite/pkg/flags"
	"github.com/Joe-rq/agent-flow-lite/pkg/llm"
	"github.com/Joe-rq/agent-flow-lite/pkg/log"
	"github.com/Joe-rq/agent-flow-lite/pkg/otelhelper"
	"github.com/Joe-rq/agent-flow-lite/pkg/safety"
)

const defaultPort = 8080

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "agentflow-api",
		Usage:                 "Run workflow executions with checkpointed resume and SSE streaming",
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
				Name:    "database-url",
				Usage:   "Database connection URL (postgres://... or a sqlite path)",
				Value:   "sqlite://agentflow.db",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "enable-http-node",
				Usage:   "Default for the outbound HTTP node feature flag",
				Sources: cli.EnvVars("ENABLE_HTTP_NODE"),
			},
			&cli.BoolFlag{
				Name:    "enable-code-node",
				Usage:   "Default for the sandboxed code node feature flag",
				Sources: cli.EnvVars("ENABLE_CODE_NODE"),
			},
			&cli.StringFlag{
				Name:    "http-node-allow-domains",
				Usage:   "Comma-separated domain allowlist for the HTTP node",
				Sources: cli.EnvVars("HTTP_NODE_ALLOW_DOMAINS"),
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "openai-base-url",
				Sources: cli.EnvVars("OPENAI_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "anthropic-api-key",
				Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "default-model",
				Usage:   "Default model selector in provider:model form",
				Sources: cli.EnvVars("DEFAULT_MODEL"),
			},
			&cli.StringFlag{
				Name:    "usage-log",
				Usage:   "Path of the JSONL token usage log; empty disables accounting",
				Sources: cli.EnvVars("USAGE_LOG_PATH"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Optional Redis URL for the feature-flag cache",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for executions and nodes",
				Sources: cli.EnvVars("ENABLE_TRACING"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "initializing agentflow api")

			enableHTTP := command.Bool("enable-http-node")
			enableCode := command.Bool("enable-code-node")

			// Boot probe: a regressed defence means no process.
			if err := safety.SelfTest(enableCode, enableHTTP); err != nil {
				return err
			}

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "failed to close event bus", "error", err)
				}
			}()

			flagStore := cmd.NewFlagStore(logger, map[string]bool{
				flags.EnableHTTPNode: enableHTTP,
				flags.EnableCodeNode: enableCode,
			}, persistence, command.String("redis-url"))

			llmClient := llm.NewClient(llm.Config{
				OpenAIAPIKey:    command.String("openai-api-key"),
				OpenAIBaseURL:   command.String("openai-base-url"),
				AnthropicAPIKey: command.String("anthropic-api-key"),
				DefaultModel:    command.String("default-model"),
				UsageLogPath:    command.String("usage-log"),
			}, logger)

			var tracer trace.Tracer
			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "agentflow-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}
			}

			api := NewAPI(
				logger,
				persistence,
				cmd.NewRegistry(logger),
				eventBus,
				flagStore,
				llmClient,
				splitDomains(command.String("http-node-allow-domains")),
				tracer,
			)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func splitDomains(raw string) []string {
	var domains []string

	for _, domain := range strings.Split(raw, ",") {
		domain = strings.TrimSpace(domain)
		if domain != "" {
			domains = append(domains, domain)
		}
	}

	return domains
}

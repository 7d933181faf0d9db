// Package llm routes chat completion requests to the configured model
// providers and streams the response back fragment by fragment.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

// StreamTimeout bounds a single upstream streaming call.
const StreamTimeout = 180 * time.Second

// ErrNoProvider is returned when no provider has an API key configured.
var ErrNoProvider = errors.New("no llm provider is configured")

// Fragment is one streamed piece of a completion. A non-nil Err terminates
// the stream; no further fragments follow it.
type Fragment struct {
	Content string
	Err     error
}

// Options tunes a single streaming call.
type Options struct {
	// Model selects the upstream model, "provider:model" or a bare model
	// name. Empty falls back to the process default.
	Model       string
	Temperature float64
	UserID      string
}

// Usage is the token accounting for one completed call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Streamer is the chat completion collaborator node executors depend on.
type Streamer interface {
	ChatCompletionStream(ctx context.Context, messages []models.Message, opts Options) (<-chan Fragment, error)
}

// Provider streams completions for a single upstream vendor. Stream sends
// fragments on out as they arrive and returns the token usage once the
// upstream closes; errors are delivered as a final Fragment.
type Provider interface {
	Name() string
	Configured() bool
	DefaultModel() string
	Stream(ctx context.Context, model string, messages []models.Message, temperature float64, out chan<- Fragment) Usage
}

// Config carries the provider credentials and process defaults.
type Config struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string

	// DefaultModel in "provider:model" form, used when a request names none.
	DefaultModel string

	// UsageLogPath is the JSONL accounting file; empty disables accounting.
	UsageLogPath string
}

// Client resolves "provider:model" selectors against the configured
// providers and owns the usage log. Upstream SDK clients are built once at
// construction and reused across calls.
type Client struct {
	logger       *slog.Logger
	providers    map[string]Provider
	order        []string
	defaultModel string
	usage        *UsageLog
}

// NewClient builds the router from the configured credentials.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	openAI := NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	anthropic := NewAnthropicProvider(cfg.AnthropicAPIKey)

	var usage *UsageLog
	if cfg.UsageLogPath != "" {
		usage = NewUsageLog(cfg.UsageLogPath)
	}

	return &Client{
		logger: logger,
		providers: map[string]Provider{
			openAI.Name():    openAI,
			anthropic.Name(): anthropic,
		},
		order:        []string{openAI.Name(), anthropic.Name()},
		defaultModel: cfg.DefaultModel,
		usage:        usage,
	}
}

// ChatCompletionStream resolves the model selector, starts the upstream
// stream and returns the fragment channel. The channel is closed when the
// upstream finishes, errors, or the per-call timeout expires.
func (c *Client) ChatCompletionStream(ctx context.Context, messages []models.Message, opts Options) (<-chan Fragment, error) {
	provider, model, err := c.resolve(opts.Model)
	if err != nil {
		return nil, err
	}

	out := make(chan Fragment)

	go func() {
		defer close(out)

		ctx, cancel := context.WithTimeout(ctx, StreamTimeout)
		defer cancel()

		usage := provider.Stream(ctx, model, messages, opts.Temperature, out)

		if c.usage != nil {
			if err := c.usage.Record(provider.Name(), model, usage, opts.UserID); err != nil {
				c.logger.Warn("failed to record llm usage", "error", err)
			}
		}
	}()

	return out, nil
}

// resolve maps a selector to a concrete provider and model name. A named
// provider without a configured key falls back to the first provider that
// has one, using that provider's default model.
func (c *Client) resolve(requested string) (Provider, string, error) {
	selector := requested
	if selector == "" {
		selector = c.defaultModel
	}

	providerName, model := splitSelector(selector)

	if providerName != "" {
		provider, ok := c.providers[providerName]
		if !ok {
			return nil, "", fmt.Errorf("unknown llm provider %q", providerName)
		}

		if provider.Configured() {
			return provider, model, nil
		}

		c.logger.Warn("llm provider has no api key, falling back",
			"requested", providerName)
	}

	for _, name := range c.order {
		provider := c.providers[name]
		if !provider.Configured() {
			continue
		}

		// The requested model belongs to another vendor (or none was
		// named at all), so use the fallback provider's own default.
		if providerName != "" && providerName != name || model == "" {
			model = provider.DefaultModel()
		}

		return provider, model, nil
	}

	return nil, "", ErrNoProvider
}

// splitSelector parses "provider:model"; a bare model yields an empty
// provider name.
func splitSelector(selector string) (provider, model string) {
	if before, after, found := strings.Cut(selector, ":"); found {
		return strings.ToLower(strings.TrimSpace(before)), strings.TrimSpace(after)
	}

	return "", strings.TrimSpace(selector)
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

const (
	anthropicDefaultModel = "claude-3-5-haiku-latest"
	anthropicMaxTokens    = 4096
)

// AnthropicProvider streams chat completions through the Anthropic API.
type AnthropicProvider struct {
	client anthropic.Client
	apiKey string
}

func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		apiKey: apiKey,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Configured() bool { return p.apiKey != "" }

func (p *AnthropicProvider) DefaultModel() string { return anthropicDefaultModel }

// Stream runs one streaming message call, forwarding each text delta. The
// system prompt rides in a separate parameter, so system turns are split
// out of the message list first.
func (p *AnthropicProvider) Stream(ctx context.Context, model string, messages []models.Message, temperature float64, out chan<- Fragment) Usage {
	system, conversation := splitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(temperature),
		Messages:    conversation,
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var usage Usage

	for stream.Next() {
		switch event := stream.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			usage.InputTokens = event.Message.Usage.InputTokens

		case anthropic.MessageDeltaEvent:
			usage.OutputTokens = event.Usage.OutputTokens

		case anthropic.ContentBlockDeltaEvent:
			if event.Delta.Text == "" {
				continue
			}

			select {
			case out <- Fragment{Content: event.Delta.Text}:
			case <-ctx.Done():
				return usage
			}
		}
	}

	if err := stream.Err(); err != nil {
		select {
		case out <- Fragment{Err: fmt.Errorf("anthropic stream failed: %w", err)}:
		case <-ctx.Done():
		}
	}

	return usage
}

// splitSystem concatenates system turns into the separate system parameter
// and converts the remainder.
func splitSystem(messages []models.Message) (string, []anthropic.MessageParam) {
	var system []string
	conversation := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			conversation = append(conversation, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			conversation = append(conversation, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return strings.Join(system, "\n\n"), conversation
}

package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

const openAIDefaultModel = "gpt-4o-mini"

// OpenAIProvider streams chat completions through the OpenAI API, or any
// OpenAI-compatible endpoint when a base URL is configured.
type OpenAIProvider struct {
	client openai.Client
	apiKey string
}

// NewOpenAIProvider builds the provider. An empty base URL targets the
// official API.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	var opts []option.RequestOption

	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		apiKey: apiKey,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Configured() bool { return p.apiKey != "" }

func (p *OpenAIProvider) DefaultModel() string { return openAIDefaultModel }

// Stream runs one streaming completion, forwarding each content delta.
func (p *OpenAIProvider) Stream(ctx context.Context, model string, messages []models.Message, temperature float64, out chan<- Fragment) Usage {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(temperature),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var usage Usage

	for stream.Next() {
		chunk := stream.Current()

		// Usage arrives on the final chunk when IncludeUsage is set.
		if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}

		select {
		case out <- Fragment{Content: content}:
		case <-ctx.Done():
			return usage
		}
	}

	if err := stream.Err(); err != nil {
		select {
		case out <- Fragment{Err: fmt.Errorf("openai stream failed: %w", err)}:
		case <-ctx.Done():
		}
	}

	return usage
}

func toOpenAIMessages(messages []models.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			result = append(result, openai.SystemMessage(msg.Content))
		case "assistant":
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}

	return result
}

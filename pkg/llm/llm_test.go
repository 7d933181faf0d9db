package llm

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

type fakeProvider struct {
	name       string
	configured bool
	fragments  []Fragment
	usage      Usage

	gotModel       string
	gotTemperature float64
	gotMessages    []models.Message
}

func (p *fakeProvider) Name() string         { return p.name }
func (p *fakeProvider) Configured() bool     { return p.configured }
func (p *fakeProvider) DefaultModel() string { return p.name + "-default" }

func (p *fakeProvider) Stream(ctx context.Context, model string, messages []models.Message, temperature float64, out chan<- Fragment) Usage {
	p.gotModel = model
	p.gotTemperature = temperature
	p.gotMessages = messages

	for _, fragment := range p.fragments {
		select {
		case out <- fragment:
		case <-ctx.Done():
			return p.usage
		}
	}

	return p.usage
}

func newTestClient(providers ...*fakeProvider) *Client {
	client := &Client{
		logger:    slog.Default(),
		providers: map[string]Provider{},
	}

	for _, p := range providers {
		client.providers[p.name] = p
		client.order = append(client.order, p.name)
	}

	return client
}

func TestSplitSelector(t *testing.T) {
	provider, model := splitSelector("openai:gpt-4o")
	assert.Equal(t, "openai", provider)
	assert.Equal(t, "gpt-4o", model)

	provider, model = splitSelector("gpt-4o")
	assert.Equal(t, "", provider)
	assert.Equal(t, "gpt-4o", model)

	provider, model = splitSelector(" Anthropic : claude-3-5-haiku-latest ")
	assert.Equal(t, "anthropic", provider)
	assert.Equal(t, "claude-3-5-haiku-latest", model)
}

func TestResolveNamedProvider(t *testing.T) {
	openAI := &fakeProvider{name: "openai", configured: true}
	client := newTestClient(openAI)

	provider, model, err := client.resolve("openai:gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, openAI, provider)
	assert.Equal(t, "gpt-4o", model)
}

func TestResolveUnknownProvider(t *testing.T) {
	client := newTestClient(&fakeProvider{name: "openai", configured: true})

	_, _, err := client.resolve("mystery:model-x")
	assert.Error(t, err)
}

func TestResolveFallsBackOnMissingKey(t *testing.T) {
	openAI := &fakeProvider{name: "openai", configured: false}
	anthropic := &fakeProvider{name: "anthropic", configured: true}
	client := newTestClient(openAI, anthropic)

	// The named provider has no key, so the first configured provider
	// serves the call with its own default model.
	provider, model, err := client.resolve("openai:gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, anthropic, provider)
	assert.Equal(t, "anthropic-default", model)
}

func TestResolveUsesDefaultModel(t *testing.T) {
	openAI := &fakeProvider{name: "openai", configured: true}
	client := newTestClient(openAI)
	client.defaultModel = "openai:gpt-4o-mini"

	provider, model, err := client.resolve("")
	require.NoError(t, err)
	assert.Equal(t, openAI, provider)
	assert.Equal(t, "gpt-4o-mini", model)
}

func TestResolveNoProviderConfigured(t *testing.T) {
	client := newTestClient(&fakeProvider{name: "openai"})

	_, _, err := client.resolve("openai:gpt-4o")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestChatCompletionStream(t *testing.T) {
	provider := &fakeProvider{
		name:       "openai",
		configured: true,
		fragments:  []Fragment{{Content: "Hel"}, {Content: "lo"}},
		usage:      Usage{InputTokens: 10, OutputTokens: 2},
	}

	client := newTestClient(provider)
	client.usage = NewUsageLog(filepath.Join(t.TempDir(), "usage.jsonl"))

	messages := []models.Message{{Role: "user", Content: "hi"}}

	stream, err := client.ChatCompletionStream(context.Background(), messages, Options{
		Model:       "openai:gpt-4o",
		Temperature: 0.3,
		UserID:      "u-1",
	})
	require.NoError(t, err)

	var collected string
	for fragment := range stream {
		require.NoError(t, fragment.Err)
		collected += fragment.Content
	}

	assert.Equal(t, "Hello", collected)
	assert.Equal(t, "gpt-4o", provider.gotModel)
	assert.Equal(t, 0.3, provider.gotTemperature)
	assert.Equal(t, messages, provider.gotMessages)
}

func TestChatCompletionStreamDeliversError(t *testing.T) {
	provider := &fakeProvider{
		name:       "openai",
		configured: true,
		fragments:  []Fragment{{Content: "par"}, {Err: errors.New("connection reset")}},
	}

	client := newTestClient(provider)

	stream, err := client.ChatCompletionStream(context.Background(), nil, Options{Model: "openai:gpt-4o"})
	require.NoError(t, err)

	var last Fragment
	for fragment := range stream {
		last = fragment
	}

	assert.Error(t, last.Err)
}

func TestUsageLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	log := NewUsageLog(path)

	require.NoError(t, log.Record("openai", "gpt-4o", Usage{InputTokens: 5, OutputTokens: 7}, "u-1"))
	require.NoError(t, log.Record("anthropic", "claude-3-5-haiku-latest", Usage{InputTokens: 1, OutputTokens: 2}, ""))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"provider":"openai"`)
	assert.Contains(t, lines[0], `"input_tokens":5`)
	assert.Contains(t, lines[0], `"user_id":"u-1"`)
	assert.NotContains(t, lines[1], "user_id")
}

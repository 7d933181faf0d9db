// Package llm provides the chat-completion node: it builds a message
// sequence from the node's prompt configuration and streams the model's
// answer as token events.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	llmclient "github.com/Joe-rq/agent-flow-lite/pkg/llm"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
	"github.com/Joe-rq/agent-flow-lite/pkg/skill"
	"github.com/Joe-rq/agent-flow-lite/pkg/template"
)

const (
	defaultSystemPrompt = "You are a helpful assistant."
	defaultTemperature  = 0.7
)

type LLMNode struct {
	logger *slog.Logger
	llm    llmclient.Streamer
	skills skill.Loader
}

func NewLLMNode(logger *slog.Logger, streamer llmclient.Streamer, skills skill.Loader) *LLMNode {
	return &LLMNode{
		logger: logger.With("module", "llm_node"),
		llm:    streamer,
		skills: skills,
	}
}

func (n *LLMNode) Execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc) <-chan models.Event {
	out := make(chan models.Event, 4)

	go func() {
		defer close(out)
		n.run(ctx, node, ec, getInput, out)
	}()

	return out
}

func (n *LLMNode) run(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc, out chan<- models.Event) {
	if !protocol.Emit(ctx, out, models.NewNodeStart(node.ID, node.Type)) {
		return
	}

	systemPrompt := stringOr(node.Data["systemPrompt"], defaultSystemPrompt)
	temperature := floatOr(node.Data["temperature"], defaultTemperature)

	model := ec.Model
	if override := stringOr(node.Data["model"], ""); override != "" {
		model = override
	}

	if skillName := stringOr(node.Data["skillName"], ""); skillName != "" {
		if n.skills == nil {
			n.fail(ctx, out, ec, node.ID, fmt.Sprintf("skill %q cannot be loaded: no skill store", skillName))
			return
		}

		sk, err := n.skills.Load(ctx, skillName)
		if err != nil {
			n.fail(ctx, out, ec, node.ID, fmt.Sprintf("failed to load skill %q: %v", skillName, err))
			return
		}

		systemPrompt = sk.Prompt
		if sk.Model != nil && sk.Model.Temperature != nil {
			temperature = *sk.Model.Temperature
		}

		if !protocol.Emit(ctx, out, models.NewThought(node.ID, "skill_loaded", map[string]any{
			"skill_name": skillName,
		})) {
			return
		}
	}

	messages := []models.Message{{Role: "system", Content: template.Resolve(systemPrompt, ec)}}

	if inherit, _ := node.Data["inheritChatHistory"].(bool); inherit {
		messages = append(messages, ec.ConversationHistory...)
	}

	messages = append(messages, models.Message{
		Role:    "user",
		Content: template.Stringify(getInput(node.ID, ec)),
	})

	stream, err := n.llm.ChatCompletionStream(ctx, messages, llmclient.Options{
		Model:       model,
		Temperature: temperature,
		UserID:      ec.UserID,
	})
	if err != nil {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("llm call failed: %v", err))
		return
	}

	var accumulated string

	for fragment := range stream {
		if fragment.Err != nil {
			n.fail(ctx, out, ec, node.ID, fmt.Sprintf("llm stream failed: %v", fragment.Err))
			return
		}

		accumulated += fragment.Content

		if !protocol.Emit(ctx, out, models.NewToken(node.ID, fragment.Content)) {
			return
		}
	}

	ec.SetOutput(node.ID, accumulated)

	protocol.Emit(ctx, out, models.NewNodeComplete(node.ID, accumulated, nil))
}

func (n *LLMNode) fail(ctx context.Context, out chan<- models.Event, ec *models.ExecutionContext, nodeID, message string) {
	ec.SetOutput(nodeID, "")
	protocol.Emit(ctx, out, models.NewNodeError(nodeID, message))
}

func stringOr(value any, fallback string) string {
	if s, ok := value.(string); ok && s != "" {
		return s
	}

	return fallback
}

func floatOr(value any, fallback float64) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}

	return fallback
}

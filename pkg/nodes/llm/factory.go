package llm

import (
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

// Factory creates LLMNode executors.
type Factory struct{}

func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeLLM
}

func (f *Factory) Description() string {
	return "Streams a chat completion built from a system prompt, optional history and the node input"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skillName": map[string]any{
				"type":        "string",
				"description": "Skill whose prompt replaces the system prompt",
			},
			"systemPrompt": map[string]any{
				"type":    "string",
				"default": defaultSystemPrompt,
			},
			"temperature": map[string]any{
				"type":    "number",
				"default": defaultTemperature,
			},
			"model": map[string]any{
				"type":        "string",
				"description": "provider:model selector overriding the execution's model",
			},
			"inheritChatHistory": map[string]any{
				"type":    "boolean",
				"default": false,
			},
		},
	}
}

func (f *Factory) Create(deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewLLMNode(deps.Logger, deps.LLM, deps.Skills), nil
}

package knowledge

import (
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

// Factory creates KnowledgeNode executors.
type Factory struct{}

func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeKnowledge
}

func (f *Factory) Description() string {
	return "Retrieves ranked chunks from a knowledge base and stitches the top hits"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"knowledgeBaseId"},
		"properties": map[string]any{
			"knowledgeBaseId": map[string]any{
				"type":        "string",
				"description": "Identifier of the knowledge base to query",
			},
		},
	}
}

func (f *Factory) Create(deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewKnowledgeNode(deps.Logger, deps.Knowledge), nil
}

package condition

import (
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

// Factory creates ConditionNode executors.
type Factory struct{}

func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeCondition
}

func (f *Factory) Description() string {
	return "Evaluates a boolean expression and routes execution along the true or false branch"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Boolean expression over template variables, e.g. \"{{check.output}} == 'yes'\"",
				"default":     "true",
			},
		},
	}
}

func (f *Factory) Create(deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewConditionNode(deps.Logger), nil
}

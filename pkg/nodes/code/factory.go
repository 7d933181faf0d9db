package code

import (
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

// Factory creates CodeNode executors.
type Factory struct{}

func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeCode
}

func (f *Factory) Description() string {
	return "Runs validated Python code in a sandboxed child process"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"code"},
		"properties": map[string]any{
			"code": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"timeoutSeconds": map[string]any{
				"type":    "number",
				"minimum": 1,
				"maximum": 30,
			},
			"memoryLimitMb": map[string]any{
				"type":    "number",
				"minimum": 64,
				"maximum": 512,
			},
			"env": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
		},
	}
}

func (f *Factory) Create(deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewCodeNode(deps.Logger, deps.Flags), nil
}

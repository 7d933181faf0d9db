package skill

import (
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

// Factory creates SkillNode executors.
type Factory struct{}

func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeSkill
}

func (f *Factory) Description() string {
	return "Invokes a named skill and re-emits its event stream into the workflow"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"skillName"},
		"properties": map[string]any{
			"skillName": map[string]any{
				"type": "string",
			},
			"inputMappings": map[string]any{
				"type":        "object",
				"description": "Skill input name to upstream node id or template reference",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
		},
	}
}

func (f *Factory) Create(deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewSkillNode(deps.Logger, deps.Skills, deps.SkillRunner), nil
}

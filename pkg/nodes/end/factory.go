package end

import (
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

// Factory creates EndNode executors.
type Factory struct{}

func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeEnd
}

func (f *Factory) Description() string {
	return "Terminal node; emits the workflow's final output"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

func (f *Factory) Create(deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewEndNode(), nil
}

package registry

import (
	"github.com/Joe-rq/agent-flow-lite/pkg/nodes/code"
	"github.com/Joe-rq/agent-flow-lite/pkg/nodes/condition"
	"github.com/Joe-rq/agent-flow-lite/pkg/nodes/end"
	"github.com/Joe-rq/agent-flow-lite/pkg/nodes/httprequest"
	"github.com/Joe-rq/agent-flow-lite/pkg/nodes/knowledge"
	"github.com/Joe-rq/agent-flow-lite/pkg/nodes/llm"
	"github.com/Joe-rq/agent-flow-lite/pkg/nodes/skill"
	"github.com/Joe-rq/agent-flow-lite/pkg/nodes/start"
)

// RegisterDefaultNodes registers all built-in node factories.
func (r *Registry) RegisterDefaultNodes() {
	r.Register(start.NewFactory())
	r.Register(llm.NewFactory())
	r.Register(knowledge.NewFactory())
	r.Register(condition.NewFactory())
	r.Register(end.NewFactory())
	r.Register(skill.NewFactory())
	r.Register(httprequest.NewFactory())
	r.Register(code.NewFactory())
}

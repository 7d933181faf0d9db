// Package protocol defines the contracts between the workflow engine and
// the pluggable node executors.
package protocol

import (
	"context"
	"log/slog"

	"github.com/Joe-rq/agent-flow-lite/pkg/flags"
	"github.com/Joe-rq/agent-flow-lite/pkg/knowledge"
	"github.com/Joe-rq/agent-flow-lite/pkg/llm"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/skill"
)

// GetInputFunc resolves a node's effective input: the output of the first
// predecessor that has produced one, else the execution's initial input.
type GetInputFunc func(nodeID string, ec *models.ExecutionContext) any

// NodeExecutor runs one node. The returned channel yields node_start first
// and, on success, node_complete last; a fatal failure yields a single
// node_error instead and the channel closes. Executors must call
// ec.SetOutput exactly once, with "" on failure, so downstream template
// references stay resolvable.
type NodeExecutor interface {
	Execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput GetInputFunc) <-chan models.Event
}

// Dependencies carries the shared collaborators handed to node factories.
// Individual executors pick what they need; unused fields may be nil when
// the corresponding node types are not registered.
type Dependencies struct {
	Logger      *slog.Logger
	LLM         llm.Streamer
	Knowledge   knowledge.Searcher
	Skills      skill.Loader
	SkillRunner skill.Runner
	Flags       *flags.Store

	// AllowDomains restricts http node targets when non-empty.
	AllowDomains []string
}

// NodeFactory creates executors for one node type and describes its
// configuration surface.
type NodeFactory interface {
	// Type returns the node type this factory serves.
	Type() models.NodeType

	// Description returns a description of what this node does.
	Description() string

	// Schema returns the JSON schema for the node's data mapping.
	Schema() map[string]any

	// Create builds an executor wired to the given dependencies.
	Create(deps Dependencies) (NodeExecutor, error)
}

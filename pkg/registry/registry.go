// Package registry maps node types to their executor factories and
// validates node configuration against the factories' schemas.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeType]protocol.NodeFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.NodeType]protocol.NodeFactory),
	}
}

// Register adds a factory, replacing any previous one for the same type.
func (r *Registry) Register(factory protocol.NodeFactory) {
	r.factories[factory.Type()] = factory
}

// CreateExecutor builds an executor for the node type.
func (r *Registry) CreateExecutor(nodeType models.NodeType, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	return factory.Create(deps)
}

// ValidateNodeData checks a node's data mapping against the registered
// schema for its type. Unregistered types fail; a nil schema passes.
func (r *Registry) ValidateNodeData(node *models.Node) error {
	factory, ok := r.factories[node.Type]
	if !ok {
		return fmt.Errorf("node %q has unknown type %q", node.ID, node.Type)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	data := node.Data
	if data == nil {
		data = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate node %q: %w", node.ID, err)
	}

	if !result.Valid() {
		return fmt.Errorf("node %q has invalid data: %s", node.ID, result.Errors()[0].String())
	}

	return nil
}

// Types lists the registered node types, sorted.
func (r *Registry) Types() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.factories))
	for nodeType := range r.factories {
		types = append(types, nodeType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

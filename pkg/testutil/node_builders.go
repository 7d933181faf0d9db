// Package testutil provides test data builders for workflow graphs.
package testutil

import (
	"github.com/google/uuid"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

// CreateTestNode creates a node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) models.Node {
	node := models.Node{
		ID:   uuid.NewString(),
		Type: models.NodeTypeLLM,
		Data: map[string]any{},
	}

	for _, override := range overrides {
		override(&node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithType sets the node type.
func WithType(nodeType models.NodeType) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = nodeType
	}
}

// WithData sets the type-specific node configuration.
func WithData(data map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Data = data
	}
}

// CreateTestWorkflow creates an empty named workflow.
func CreateTestWorkflow(name string) *models.Workflow {
	return &models.Workflow{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// CreateLinearWorkflow creates a start -> llm -> end workflow, the smallest
// graph that exercises a full traversal.
func CreateLinearWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:   id,
		Name: "linear " + id,
		GraphData: models.GraphData{
			Nodes: []models.Node{
				CreateTestNode(WithID("s"), WithType(models.NodeTypeStart)),
				CreateTestNode(WithID("llm")),
				CreateTestNode(WithID("e"), WithType(models.NodeTypeEnd)),
			},
			Edges: []models.Edge{
				CreateTestEdge("s", "llm"),
				CreateTestEdge("llm", "e"),
			},
		},
	}
}

// CreateTestEdge creates an unconditional edge between two nodes.
func CreateTestEdge(source, target string) models.Edge {
	return models.Edge{Source: source, Target: target}
}

// CreateBranchEdge creates an edge that only passes the named condition branch.
func CreateBranchEdge(source, target, handle string) models.Edge {
	return models.Edge{Source: source, Target: target, SourceHandle: handle}
}

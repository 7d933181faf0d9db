// Package models defines the core domain models for node-graph workflow execution.
package models

import "time"

// NodeType identifies the executor used for a workflow node.
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeLLM       NodeType = "llm"
	NodeTypeKnowledge NodeType = "knowledge"
	NodeTypeCondition NodeType = "condition"
	NodeTypeEnd       NodeType = "end"
	NodeTypeSkill     NodeType = "skill"
	NodeTypeHTTP      NodeType = "http"
	NodeTypeCode      NodeType = "code"
)

// Node is a vertex of a workflow graph. Data carries the type-specific
// configuration keys recognised by the node's executor.
type Node struct {
	ID   string         `json:"id"   validate:"required"`
	Type NodeType       `json:"type" validate:"required"`
	Data map[string]any `json:"data"`
}

// Edge is a directed connection between two nodes. SourceHandle is only
// meaningful on edges leaving a condition node, where it selects the
// "true" or "false" branch; an absent handle passes through on any branch.
type Edge struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// GraphData holds the node/edge sets of a user-authored workflow graph.
// Edge order is preserved: the engine enqueues targets in declaration order.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Workflow is a named directed graph of typed nodes supplied by the user.
type Workflow struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Name         string    `json:"name"        validate:"required,min=1"`
	Description  string    `json:"description"`
	GraphData    GraphData `json:"graph_data"`
	TemplateName string    `json:"template_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StartNodes returns the ids of all start-typed nodes in declaration order.
func (w *Workflow) StartNodes() []string {
	var ids []string

	for _, node := range w.GraphData.Nodes {
		if node.Type == NodeTypeStart {
			ids = append(ids, node.ID)
		}
	}

	return ids
}

// NodeByID looks a node up by id.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for i := range w.GraphData.Nodes {
		if w.GraphData.Nodes[i].ID == id {
			return &w.GraphData.Nodes[i], true
		}
	}

	return nil, false
}

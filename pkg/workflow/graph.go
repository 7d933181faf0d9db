package workflow

import (
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

// graph is the prepared form of a workflow definition: adjacency in edge
// declaration order, which the traversal relies on for deterministic
// enqueueing.
type graph struct {
	workflow *models.Workflow
	outgoing map[string][]models.Edge
	incoming map[string][]string
}

func buildGraph(wf *models.Workflow) *graph {
	g := &graph{
		workflow: wf,
		outgoing: make(map[string][]models.Edge),
		incoming: make(map[string][]string),
	}

	for _, edge := range wf.GraphData.Edges {
		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge)
		g.incoming[edge.Target] = append(g.incoming[edge.Target], edge.Source)
	}

	return g
}

// input resolves a node's effective input: the output of the first
// predecessor that has produced one, else the execution's initial input.
func (g *graph) input(nodeID string, ec *models.ExecutionContext) any {
	for _, source := range g.incoming[nodeID] {
		if value, ok := ec.StepOutputs[source]; ok {
			return value
		}
	}

	value, _ := ec.GetVariable("input")

	return value
}

// HasCycle reports whether the workflow graph contains a cycle. The engine
// runs the same check before executing; this form is for pre-save
// validation.
func HasCycle(wf *models.Workflow) bool {
	return buildGraph(wf).hasCycle()
}

const (
	colourUnvisited = iota
	colourOnStack
	colourDone
)

// hasCycle runs a three-colour depth-first search; any back edge to a node
// still on the stack means a cycle.
func (g *graph) hasCycle() bool {
	colours := make(map[string]int, len(g.workflow.GraphData.Nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colours[id] = colourOnStack

		for _, edge := range g.outgoing[id] {
			switch colours[edge.Target] {
			case colourOnStack:
				return true
			case colourUnvisited:
				if visit(edge.Target) {
					return true
				}
			}
		}

		colours[id] = colourDone

		return false
	}

	for _, node := range g.workflow.GraphData.Nodes {
		if colours[node.ID] == colourUnvisited && visit(node.ID) {
			return true
		}
	}

	return false
}

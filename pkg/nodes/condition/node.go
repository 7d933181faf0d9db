// Package condition provides the branching node. It evaluates a boolean
// expression against the execution's variables and records the chosen
// branch for the engine's edge filter; the node's own output is the
// untouched input so downstream nodes keep useful content.
package condition

import (
	"context"
	"log/slog"

	"github.com/Joe-rq/agent-flow-lite/pkg/expr"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
	"github.com/Joe-rq/agent-flow-lite/pkg/template"
)

// BranchVariable returns the private variables key the engine consults
// after the node ran.
func BranchVariable(nodeID string) string {
	return nodeID + ".__branch"
}

type ConditionNode struct {
	logger *slog.Logger
}

func NewConditionNode(logger *slog.Logger) *ConditionNode {
	return &ConditionNode{logger: logger.With("module", "condition_node")}
}

func (n *ConditionNode) Execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc) <-chan models.Event {
	out := make(chan models.Event, 3)

	go func() {
		defer close(out)

		if !protocol.Emit(ctx, out, models.NewNodeStart(node.ID, node.Type)) {
			return
		}

		expression, _ := node.Data["expression"].(string)
		if expression == "" {
			expression = "true"
		}

		resolved := template.ResolveExpression(expression, ec)

		branch, err := expr.Evaluate(resolved)
		if err != nil {
			// Unparseable or unresolved expressions fall through to the
			// false arm instead of failing the workflow.
			n.logger.Warn("condition evaluation failed, taking false branch",
				"node_id", node.ID, "expression", expression, "error", err)
			branch = false
		}

		ec.Variables[BranchVariable(node.ID)] = branch

		input := getInput(node.ID, ec)
		ec.SetOutput(node.ID, input)

		branchName := "false"
		if branch {
			branchName = "true"
		}

		if !protocol.Emit(ctx, out, models.NewThought(node.ID, "condition", map[string]any{
			"expression": expression,
			"branch":     branchName,
		})) {
			return
		}

		protocol.Emit(ctx, out, models.NewNodeComplete(node.ID, input, nil))
	}()

	return out
}

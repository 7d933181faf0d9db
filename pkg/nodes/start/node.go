// Package start provides the entry node: it publishes the execution's
// initial input as its output, optionally aliased under a caller-chosen
// variable name.
package start

import (
	"context"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

type StartNode struct{}

func NewStartNode() *StartNode {
	return &StartNode{}
}

func (n *StartNode) Execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc) <-chan models.Event {
	out := make(chan models.Event, 2)

	go func() {
		defer close(out)

		if !protocol.Emit(ctx, out, models.NewNodeStart(node.ID, node.Type)) {
			return
		}

		input, _ := ec.GetVariable("input")

		if alias, ok := node.Data["inputVariable"].(string); ok && alias != "" {
			ec.Variables[alias] = input
		}

		ec.SetOutput(node.ID, input)

		protocol.Emit(ctx, out, models.NewNodeComplete(node.ID, input, nil))
	}()

	return out
}

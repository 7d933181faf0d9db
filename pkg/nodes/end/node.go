// Package end provides the terminal node: it publishes its input as the
// workflow's final output and closes the run with workflow_complete.
package end

import (
	"context"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
)

type EndNode struct{}

func NewEndNode() *EndNode {
	return &EndNode{}
}

func (n *EndNode) Execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc) <-chan models.Event {
	out := make(chan models.Event, 3)

	go func() {
		defer close(out)

		if !protocol.Emit(ctx, out, models.NewNodeStart(node.ID, node.Type)) {
			return
		}

		output := getInput(node.ID, ec)
		ec.SetOutput(node.ID, output)

		if !protocol.Emit(ctx, out, models.NewNodeComplete(node.ID, output, nil)) {
			return
		}

		// The only executor allowed to finish the workflow from inside.
		protocol.Emit(ctx, out, models.NewWorkflowComplete(output))
	}()

	return out
}

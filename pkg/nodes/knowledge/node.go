// Package knowledge provides the retrieval node: it queries a knowledge
// base with the node input and stitches the top hits into a single
// context string.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	kb "github.com/Joe-rq/agent-flow-lite/pkg/knowledge"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
	"github.com/Joe-rq/agent-flow-lite/pkg/template"
)

const (
	searchTopK   = 5
	stitchedHits = 3
)

type KnowledgeNode struct {
	logger *slog.Logger
	search kb.Searcher
}

func NewKnowledgeNode(logger *slog.Logger, searcher kb.Searcher) *KnowledgeNode {
	return &KnowledgeNode{
		logger: logger.With("module", "knowledge_node"),
		search: searcher,
	}
}

func (n *KnowledgeNode) Execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc) <-chan models.Event {
	out := make(chan models.Event, 4)

	go func() {
		defer close(out)
		n.run(ctx, node, ec, getInput, out)
	}()

	return out
}

func (n *KnowledgeNode) run(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc, out chan<- models.Event) {
	if !protocol.Emit(ctx, out, models.NewNodeStart(node.ID, node.Type)) {
		return
	}

	kbID, _ := node.Data["knowledgeBaseId"].(string)
	if kbID == "" {
		n.fail(ctx, out, ec, node.ID, "knowledge node requires knowledgeBaseId")
		return
	}

	if n.search == nil {
		n.fail(ctx, out, ec, node.ID, "no knowledge store is configured")
		return
	}

	query := template.Stringify(getInput(node.ID, ec))

	if !protocol.Emit(ctx, out, models.NewThought(node.ID, "retrieval", map[string]any{"status": "start"})) {
		return
	}

	chunks, err := n.search.Search(ctx, kbID, query, searchTopK)
	if err != nil {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("retrieval failed: %v", err))
		return
	}

	output := stitch(chunks)
	ec.SetOutput(node.ID, output)

	if !protocol.Emit(ctx, out, models.NewThought(node.ID, "retrieval", map[string]any{
		"status":        "complete",
		"results_count": len(chunks),
	})) {
		return
	}

	protocol.Emit(ctx, out, models.NewNodeComplete(node.ID, output, nil))
}

func (n *KnowledgeNode) fail(ctx context.Context, out chan<- models.Event, ec *models.ExecutionContext, nodeID, message string) {
	ec.SetOutput(nodeID, "")
	protocol.Emit(ctx, out, models.NewNodeError(nodeID, message))
}

// stitch joins the top hits, each prefixed with its rank, separated by
// blank lines.
func stitch(chunks []kb.Chunk) string {
	limit := min(len(chunks), stitchedHits)

	blocks := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		blocks = append(blocks, fmt.Sprintf("[%d] %s", i+1, chunks[i].Text))
	}

	return strings.Join(blocks, "\n\n")
}

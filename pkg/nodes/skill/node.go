// Package skill provides the sub-skill node. It maps upstream outputs onto
// the skill's declared inputs, runs the skill executor, and translates the
// skill's encoded event stream back into engine-native events.
package skill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
	skillpkg "github.com/Joe-rq/agent-flow-lite/pkg/skill"
	"github.com/Joe-rq/agent-flow-lite/pkg/sse"
	"github.com/Joe-rq/agent-flow-lite/pkg/template"
)

type SkillNode struct {
	logger *slog.Logger
	loader skillpkg.Loader
	runner skillpkg.Runner
}

func NewSkillNode(logger *slog.Logger, loader skillpkg.Loader, runner skillpkg.Runner) *SkillNode {
	return &SkillNode{
		logger: logger.With("module", "skill_node"),
		loader: loader,
		runner: runner,
	}
}

func (n *SkillNode) Execute(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc) <-chan models.Event {
	out := make(chan models.Event, 4)

	go func() {
		defer close(out)
		n.run(ctx, node, ec, getInput, out)
	}()

	return out
}

func (n *SkillNode) run(ctx context.Context, node *models.Node, ec *models.ExecutionContext, getInput protocol.GetInputFunc, out chan<- models.Event) {
	if !protocol.Emit(ctx, out, models.NewNodeStart(node.ID, node.Type)) {
		return
	}

	skillName, _ := node.Data["skillName"].(string)
	if skillName == "" {
		n.fail(ctx, out, ec, node.ID, "skill node requires skillName")
		return
	}

	if n.loader == nil || n.runner == nil {
		n.fail(ctx, out, ec, node.ID, "no skill store is configured")
		return
	}

	sk, err := n.loader.Load(ctx, skillName)
	if err != nil {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("failed to load skill %q: %v", skillName, err))
		return
	}

	inputs := buildInputs(node, sk, ec, getInput)

	records, err := n.runner.Execute(ctx, sk, inputs, ec.UserID)
	if err != nil {
		n.fail(ctx, out, ec, node.ID, fmt.Sprintf("failed to run skill %q: %v", skillName, err))
		return
	}

	var accumulated strings.Builder

	for record := range records {
		frame, ok := sse.ParseFrame(strings.TrimSuffix(record, "\n\n"))
		if !ok {
			continue
		}

		switch models.EventType(frame.Event) {
		case models.EventToken:
			content, _ := frame.Data["content"].(string)
			accumulated.WriteString(content)

			if !protocol.Emit(ctx, out, models.NewToken(node.ID, content)) {
				return
			}

		case models.EventThought:
			typeDetail, _ := frame.Data["type_detail"].(string)
			extra := make(map[string]any, len(frame.Data))
			for k, v := range frame.Data {
				if k != "type_detail" {
					extra[k] = v
				}
			}

			if !protocol.Emit(ctx, out, models.NewThought(node.ID, typeDetail, extra)) {
				return
			}

		case models.EventCitation:
			if !protocol.Emit(ctx, out, models.NewCitation(node.ID, frame.Data["sources"])) {
				return
			}

		case models.EventDone:
			if status, _ := frame.Data["status"].(string); status == "error" {
				message, _ := frame.Data["message"].(string)
				if message == "" {
					message = "skill execution failed"
				}

				n.fail(ctx, out, ec, node.ID, message)

				return
			}
		}
	}

	output := accumulated.String()
	ec.SetOutput(node.ID, output)

	protocol.Emit(ctx, out, models.NewNodeComplete(node.ID, output, nil))
}

func (n *SkillNode) fail(ctx context.Context, out chan<- models.Event, ec *models.ExecutionContext, nodeID, message string) {
	ec.SetOutput(nodeID, "")
	protocol.Emit(ctx, out, models.NewNodeError(nodeID, message))
}

// buildInputs resolves the node's inputMappings. A mapping value naming a
// node that has produced output takes that output; anything else is treated
// as a template reference. With no mappings at all, the node input lands in
// the skill's first required (else first declared) input.
func buildInputs(node *models.Node, sk *models.Skill, ec *models.ExecutionContext, getInput protocol.GetInputFunc) map[string]string {
	inputs := make(map[string]string)

	mappings, _ := node.Data["inputMappings"].(map[string]any)

	for name, ref := range mappings {
		reference, _ := ref.(string)

		if output, ok := ec.StepOutputs[reference]; ok {
			inputs[name] = template.Stringify(output)
			continue
		}

		inputs[name] = template.Resolve("{{"+reference+"}}", ec)
	}

	if len(inputs) == 0 {
		if in, ok := sk.FirstInput(); ok {
			inputs[in.Name] = template.Stringify(getInput(node.ID, ec))
		}
	}

	return inputs
}

package skill

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	skillpkg "github.com/Joe-rq/agent-flow-lite/pkg/skill"
	"github.com/Joe-rq/agent-flow-lite/pkg/sse"
)

type scriptedRunner struct {
	events []models.Event

	gotSkill  *models.Skill
	gotInputs map[string]string
}

func (r *scriptedRunner) Execute(ctx context.Context, sk *models.Skill, inputs map[string]string, userID string) (<-chan string, error) {
	r.gotSkill = sk
	r.gotInputs = inputs

	out := make(chan string, len(r.events))
	for _, event := range r.events {
		record, _ := sse.Encode(event)
		out <- string(record)
	}
	close(out)

	return out, nil
}

func getInput(nodeID string, ec *models.ExecutionContext) any {
	value, _ := ec.GetVariable("input")
	return value
}

func collect(events <-chan models.Event) []models.Event {
	var collected []models.Event
	for event := range events {
		collected = append(collected, event)
	}

	return collected
}

func questionSkill() *models.Skill {
	return &models.Skill{
		Name:   "answer",
		Prompt: "Answer: {{question}}",
		Inputs: []models.SkillInput{{Name: "question", Required: true}},
	}
}

func TestExecuteTranslatesSubStream(t *testing.T) {
	runner := &scriptedRunner{events: []models.Event{
		{Type: models.EventThought, Data: map[string]any{"type_detail": "retrieval", "status": "start"}},
		{Type: models.EventCitation, Data: map[string]any{"sources": []any{map[string]any{"id": "c1"}}}},
		{Type: models.EventToken, Data: map[string]any{"content": "four"}},
		{Type: models.EventToken, Data: map[string]any{"content": "ty-two"}},
		{Type: models.EventDone, Data: map[string]any{"status": "ok"}},
	}}

	executor := NewSkillNode(slog.Default(), skillpkg.NewStaticLoader(questionSkill()), runner)

	ec := models.NewExecutionContext("what is the answer", "", "")
	node := &models.Node{
		ID:   "sk-1",
		Type: models.NodeTypeSkill,
		Data: map[string]any{"skillName": "answer"},
	}

	events := collect(executor.Execute(context.Background(), node, ec, getInput))

	var types []models.EventType
	for _, event := range events {
		types = append(types, event.Type)
	}
	assert.Equal(t, []models.EventType{
		models.EventNodeStart,
		models.EventThought,
		models.EventCitation,
		models.EventToken,
		models.EventToken,
		models.EventNodeComplete,
	}, types)

	// Re-emitted events carry this node's id.
	assert.Equal(t, "sk-1", events[1].Data["node_id"])
	assert.Equal(t, "retrieval", events[1].Data["type_detail"])
	assert.Equal(t, "sk-1", events[3].Data["node_id"])

	assert.Equal(t, "fourty-two", events[5].Data["output"])
	assert.Equal(t, "fourty-two", ec.StepOutputs["sk-1"])

	// With no mappings the node input fills the first required input.
	assert.Equal(t, map[string]string{"question": "what is the answer"}, runner.gotInputs)
}

func TestExecuteInputMappings(t *testing.T) {
	runner := &scriptedRunner{events: []models.Event{
		{Type: models.EventDone, Data: map[string]any{"status": "ok"}},
	}}

	executor := NewSkillNode(slog.Default(), skillpkg.NewStaticLoader(questionSkill()), runner)

	ec := models.NewExecutionContext("ignored", "", "")
	ec.SetOutput("fetch", "fetched value")
	ec.SetVariable("custom", "scratch value")

	node := &models.Node{
		ID:   "sk-1",
		Type: models.NodeTypeSkill,
		Data: map[string]any{
			"skillName": "answer",
			"inputMappings": map[string]any{
				"question": "fetch",  // node id with produced output
				"extra":    "custom", // template reference
			},
		},
	}

	collect(executor.Execute(context.Background(), node, ec, getInput))

	assert.Equal(t, "fetched value", runner.gotInputs["question"])
	assert.Equal(t, "scratch value", runner.gotInputs["extra"])
}

func TestExecuteSubStreamError(t *testing.T) {
	runner := &scriptedRunner{events: []models.Event{
		{Type: models.EventToken, Data: map[string]any{"content": "par"}},
		{Type: models.EventDone, Data: map[string]any{"status": "error", "message": "model unavailable"}},
	}}

	executor := NewSkillNode(slog.Default(), skillpkg.NewStaticLoader(questionSkill()), runner)

	ec := models.NewExecutionContext("q", "", "")
	node := &models.Node{
		ID:   "sk-1",
		Type: models.NodeTypeSkill,
		Data: map[string]any{"skillName": "answer"},
	}

	events := collect(executor.Execute(context.Background(), node, ec, getInput))

	last := events[len(events)-1]
	assert.Equal(t, models.EventNodeError, last.Type)
	assert.Equal(t, "model unavailable", last.Data["error"])
	assert.Equal(t, "", ec.StepOutputs["sk-1"])
}

func TestExecuteMissingSkill(t *testing.T) {
	executor := NewSkillNode(slog.Default(), skillpkg.NewStaticLoader(), &scriptedRunner{})

	ec := models.NewExecutionContext("q", "", "")
	node := &models.Node{
		ID:   "sk-1",
		Type: models.NodeTypeSkill,
		Data: map[string]any{"skillName": "missing"},
	}

	events := collect(executor.Execute(context.Background(), node, ec, getInput))

	require.Len(t, events, 2)
	assert.Equal(t, models.EventNodeError, events[1].Type)
}

func TestExecuteRequiresSkillName(t *testing.T) {
	executor := NewSkillNode(slog.Default(), skillpkg.NewStaticLoader(), &scriptedRunner{})

	ec := models.NewExecutionContext("q", "", "")
	node := &models.Node{ID: "sk-1", Type: models.NodeTypeSkill}

	events := collect(executor.Execute(context.Background(), node, ec, getInput))

	require.Len(t, events, 2)
	assert.Equal(t, models.EventNodeError, events[1].Type)
}

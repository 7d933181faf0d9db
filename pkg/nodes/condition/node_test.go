package condition

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

func run(t *testing.T, expression string, ec *models.ExecutionContext) []models.Event {
	t.Helper()

	node := &models.Node{ID: "c-1", Type: models.NodeTypeCondition}
	if expression != "" {
		node.Data = map[string]any{"expression": expression}
	}

	getInput := func(nodeID string, ec *models.ExecutionContext) any {
		value, _ := ec.GetVariable("input")
		return value
	}

	var events []models.Event
	for event := range NewConditionNode(slog.Default()).Execute(context.Background(), node, ec, getInput) {
		events = append(events, event)
	}

	return events
}

func TestTrueBranch(t *testing.T) {
	ec := models.NewExecutionContext("payload", "", "")
	ec.SetOutput("check", "yes")

	events := run(t, `{{check.output}} === "yes"`, ec)

	require.Len(t, events, 3)
	assert.Equal(t, models.EventThought, events[1].Type)
	assert.Equal(t, "true", events[1].Data["branch"])
	assert.Equal(t, true, ec.Variables["c-1.__branch"])

	// Output is the passthrough input, not the boolean.
	assert.Equal(t, "payload", events[2].Data["output"])
	assert.Equal(t, "payload", ec.StepOutputs["c-1"])
}

func TestFalseBranch(t *testing.T) {
	ec := models.NewExecutionContext("payload", "", "")
	ec.SetOutput("check", "no")

	events := run(t, `{{check.output}} === "yes"`, ec)

	assert.Equal(t, "false", events[1].Data["branch"])
	assert.Equal(t, false, ec.Variables["c-1.__branch"])
}

func TestDefaultExpressionIsTrue(t *testing.T) {
	ec := models.NewExecutionContext("x", "", "")

	events := run(t, "", ec)

	assert.Equal(t, "true", events[1].Data["branch"])
}

func TestUnresolvedVariableFallsThroughToFalse(t *testing.T) {
	ec := models.NewExecutionContext("x", "", "")

	events := run(t, `{{missing.output}} == "yes"`, ec)

	assert.Equal(t, "false", events[1].Data["branch"])
	assert.Equal(t, false, ec.Variables["c-1.__branch"])
}

func TestMalformedExpressionFallsThroughToFalse(t *testing.T) {
	ec := models.NewExecutionContext("x", "", "")

	events := run(t, `__import__("os")`, ec)

	assert.Equal(t, "false", events[1].Data["branch"])
}

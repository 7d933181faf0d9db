package code

import (
	"context"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joe-rq/agent-flow-lite/pkg/flags"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

func enabledFlags() *flags.Store {
	return flags.NewStore(slog.Default(), map[string]bool{flags.EnableCodeNode: true}, nil, nil)
}

func getInput(nodeID string, ec *models.ExecutionContext) any {
	value, _ := ec.GetVariable("input")
	return value
}

func run(t *testing.T, store *flags.Store, ec *models.ExecutionContext, data map[string]any) []models.Event {
	t.Helper()

	node := &models.Node{ID: "code-1", Type: models.NodeTypeCode, Data: data}
	executor := NewCodeNode(slog.Default(), store)

	var events []models.Event
	for event := range executor.Execute(context.Background(), node, ec, getInput) {
		events = append(events, event)
	}

	return events
}

func requirePython(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(interpreter); err != nil {
		t.Skipf("%s not available", interpreter)
	}
}

func TestExecuteDisabledByFlag(t *testing.T) {
	store := flags.NewStore(slog.Default(), map[string]bool{flags.EnableCodeNode: false}, nil, nil)
	ec := models.NewExecutionContext("x", "", "")

	events := run(t, store, ec, map[string]any{"code": "print('hi')"})

	require.Len(t, events, 2)
	assert.Equal(t, models.EventNodeError, events[1].Type)
	assert.Contains(t, events[1].Data["error"], "disabled")
	assert.Equal(t, "", ec.StepOutputs["code-1"])
}

func TestExecuteRejectsEmptyCode(t *testing.T) {
	ec := models.NewExecutionContext("x", "", "")

	events := run(t, enabledFlags(), ec, map[string]any{"code": "   "})

	last := events[len(events)-1]
	assert.Equal(t, models.EventNodeError, last.Type)
	assert.Contains(t, last.Data["error"], "non-empty")
}

func TestExecuteRejectsForbiddenCode(t *testing.T) {
	ec := models.NewExecutionContext("x", "", "")

	events := run(t, enabledFlags(), ec, map[string]any{
		"code": "import subprocess\nsubprocess.run(['ls'])",
	})

	last := events[len(events)-1]
	assert.Equal(t, models.EventNodeError, last.Type)
	assert.Contains(t, last.Data["error"], "code rejected")
	assert.Equal(t, "", ec.StepOutputs["code-1"])
}

func TestExecuteRunsScript(t *testing.T) {
	requirePython(t)

	ec := models.NewExecutionContext("x", "", "")

	events := run(t, enabledFlags(), ec, map[string]any{"code": "print('hello from sandbox')"})

	last := events[len(events)-1]
	require.Equal(t, models.EventNodeComplete, last.Type)
	assert.Equal(t, "hello from sandbox", last.Data["output"])
	assert.Equal(t, "hello from sandbox", ec.StepOutputs["code-1"])
}

func TestBuildEnv(t *testing.T) {
	ec := models.NewExecutionContext("payload text", "u-1", "")
	ec.SetOutput("prev", "upstream")

	node := &models.Node{
		ID:   "code-1",
		Type: models.NodeTypeCode,
		Data: map[string]any{
			"env": map[string]any{
				"extra":   "{{prev.output}}",
				"bad-key": "dropped",
			},
		},
	}

	env := buildEnv(node, ec, getInput)

	assert.Contains(t, env, "PYTHONIOENCODING=utf-8")
	assert.Contains(t, env, "EXTRA=upstream")
	assert.Contains(t, env, "WORKFLOW_INPUT=payload text")
	assert.Contains(t, env, "USER_ID=u-1")

	for _, entry := range env {
		assert.NotContains(t, entry, "bad-key")
		assert.NotContains(t, entry, "BAD-KEY")
	}
}

func TestExecuteReportsNonZeroExit(t *testing.T) {
	requirePython(t)

	ec := models.NewExecutionContext("x", "", "")

	events := run(t, enabledFlags(), ec, map[string]any{
		"code": "import sys\nprint('boom', file=sys.stderr)\nsys.exit(3)",
	})

	last := events[len(events)-1]
	assert.Equal(t, models.EventNodeError, last.Type)
	assert.Contains(t, last.Data["error"], "boom")
	assert.Equal(t, "", ec.StepOutputs["code-1"])
}

func TestExecuteTimesOut(t *testing.T) {
	requirePython(t)

	ec := models.NewExecutionContext("x", "", "")

	start := time.Now()
	events := run(t, enabledFlags(), ec, map[string]any{
		"code":           "while True:\n    pass",
		"timeoutSeconds": 1,
	})

	last := events[len(events)-1]
	assert.Equal(t, models.EventNodeError, last.Type)
	assert.Contains(t, last.Data["error"], "timed out")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestClampMemory(t *testing.T) {
	assert.Equal(t, maxMemoryMB, clampMemory(nil))
	assert.Equal(t, 128, clampMemory(128.0))
	assert.Equal(t, minMemoryMB, clampMemory(1))
	assert.Equal(t, maxMemoryMB, clampMemory(4096))
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutputMirrorsVariables(t *testing.T) {
	ec := NewExecutionContext("hi", "", "")
	ec.SetOutput("node-1", "hello")

	assert.Equal(t, "hello", ec.StepOutputs["node-1"])
	assert.Equal(t, "hello", ec.Variables["node-1.output"])
}

func TestGetVariableFlatBeforeNested(t *testing.T) {
	ec := NewExecutionContext("hi", "", "")

	// Node ids with hyphens are not valid path components, so the literal
	// flat key must win over dot-split traversal.
	ec.SetOutput("abc-def", 42)

	value, ok := ec.GetVariable("abc-def.output")
	require.True(t, ok)
	assert.Equal(t, 42, value)
}

func TestGetVariableNestedTraversal(t *testing.T) {
	ec := NewExecutionContext("hi", "", "")
	ec.SetVariable("response", map[string]any{
		"data": map[string]any{"name": "ada"},
	})

	value, ok := ec.GetVariable("response.data.name")
	require.True(t, ok)
	assert.Equal(t, "ada", value)

	_, ok = ec.GetVariable("response.data.missing")
	assert.False(t, ok)

	_, ok = ec.GetVariable("nothere")
	assert.False(t, ok)
}

func TestCheckpointRoundTrip(t *testing.T) {
	ec := NewExecutionContext("question", "user-9", "openai:gpt-4o")
	ec.SetOutput("start-1", "question")
	ec.SetOutput("llm-1", "answer")
	ec.SetVariable("topic", "workflows")
	ec.ConversationHistory = []Message{{Role: "user", Content: "question"}}

	cp := ec.Checkpoint()

	// Checkpoints must survive JSON serialisation, that is how they are stored.
	raw, err := json.Marshal(cp)
	require.NoError(t, err)

	var decoded ContextCheckpoint
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored := ContextFromCheckpoint(decoded, "question", "user-9", "openai:gpt-4o")

	for _, key := range []string{"start-1.output", "llm-1.output", "topic", "input"} {
		want, ok := ec.GetVariable(key)
		require.True(t, ok, key)

		got, ok := restored.GetVariable(key)
		require.True(t, ok, key)
		assert.EqualValues(t, want, got, key)
	}

	assert.Equal(t, ec.ConversationHistory, restored.ConversationHistory)
	assert.Len(t, restored.StepOutputs, 2)
}

func TestCheckpointIsACopy(t *testing.T) {
	ec := NewExecutionContext("hi", "", "")
	ec.SetOutput("a", "one")

	cp := ec.Checkpoint()
	ec.SetOutput("a", "two")

	assert.Equal(t, "one", cp.StepOutputs["a"])
}

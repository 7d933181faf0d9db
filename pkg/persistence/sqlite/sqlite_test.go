package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence"
)

func openStore(t *testing.T) *Persistence {
	t.Helper()

	store, err := NewPersistence(context.Background(), slog.Default(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return store
}

func TestWorkflowRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	workflow := &models.Workflow{
		Name:   "greeter",
		UserID: "u-1",
		GraphData: models.GraphData{
			Nodes: []models.Node{
				{ID: "s", Type: models.NodeTypeStart},
				{ID: "e", Type: models.NodeTypeEnd},
			},
			Edges: []models.Edge{{Source: "s", Target: "e"}},
		},
	}

	require.NoError(t, store.SaveWorkflow(ctx, workflow))
	require.NotEmpty(t, workflow.ID)

	loaded, err := store.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "greeter", loaded.Name)
	assert.Equal(t, "u-1", loaded.UserID)
	require.Len(t, loaded.GraphData.Nodes, 2)
	assert.Equal(t, models.NodeTypeStart, loaded.GraphData.Nodes[0].Type)
	require.Len(t, loaded.GraphData.Edges, 1)

	// Upsert keeps the id and bumps the row.
	loaded.Description = "says hello"
	require.NoError(t, store.SaveWorkflow(ctx, loaded))

	again, err := store.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "says hello", again.Description)

	all, err := store.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteWorkflow(ctx, workflow.ID))

	_, err = store.WorkflowByID(ctx, workflow.ID)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	assert.ErrorIs(t, store.DeleteWorkflow(ctx, workflow.ID), persistence.ErrWorkflowNotFound)
}

func TestExecutionRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	execution := &models.Execution{
		ID:           "exec-1",
		WorkflowID:   "wf-1",
		Status:       models.ExecutionStatusRunning,
		InitialInput: "hello",
		StepOutputs:  map[string]any{"s": "hello"},
		Variables:    map[string]any{"input": "hello", "s.output": "hello"},
		ExecutedNodes: []string{
			"s",
		},
		Queue: []string{"llm-1"},
	}

	require.NoError(t, store.SaveExecution(ctx, execution))

	loaded, err := store.ExecutionByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
	assert.Equal(t, "hello", loaded.StepOutputs["s"])
	assert.Equal(t, []string{"s"}, loaded.ExecutedNodes)
	assert.Equal(t, []string{"llm-1"}, loaded.Queue)

	loaded.Status = models.ExecutionStatusCompleted
	loaded.Queue = nil
	require.NoError(t, store.SaveExecution(ctx, loaded))

	final, err := store.ExecutionByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, final.Status)
	assert.Empty(t, final.Queue)

	_, err = store.ExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}

func TestSkillRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	temp := 0.4
	sk := &models.Skill{
		Name:          "summarise",
		Prompt:        "Summarise: {{text}}",
		Inputs:        []models.SkillInput{{Name: "text", Required: true}},
		KnowledgeBase: "kb-1",
		Model:         &models.SkillModel{Name: "openai:gpt-4o", Temperature: &temp},
	}

	require.NoError(t, store.SaveSkill(ctx, sk))

	loaded, err := store.SkillByName(ctx, "summarise")
	require.NoError(t, err)
	assert.Equal(t, "kb-1", loaded.KnowledgeBase)
	require.NotNil(t, loaded.Model)
	assert.Equal(t, "openai:gpt-4o", loaded.Model.Name)
	require.NotNil(t, loaded.Model.Temperature)
	assert.Equal(t, 0.4, *loaded.Model.Temperature)
	require.Len(t, loaded.Inputs, 1)
	assert.True(t, loaded.Inputs[0].Required)

	_, err = store.SkillByName(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrSkillNotFound)

	skills, err := store.Skills(ctx)
	require.NoError(t, err)
	assert.Len(t, skills, 1)
}

func TestFlagOverrides(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, found, err := store.FlagOverride(ctx, "ENABLE_HTTP_NODE")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetFlagOverride(ctx, "ENABLE_HTTP_NODE", true))

	value, found, err := store.FlagOverride(ctx, "ENABLE_HTTP_NODE")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, value)

	require.NoError(t, store.SetFlagOverride(ctx, "ENABLE_HTTP_NODE", false))

	value, found, err = store.FlagOverride(ctx, "ENABLE_HTTP_NODE")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, value)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	first, err := NewPersistence(context.Background(), slog.Default(), path)
	require.NoError(t, err)
	require.NoError(t, first.Close(context.Background()))

	second, err := NewPersistence(context.Background(), slog.Default(), path)
	require.NoError(t, err)
	require.NoError(t, second.HealthCheck(context.Background()))
	require.NoError(t, second.Close(context.Background()))
}

package workflow

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "github.com/Joe-rq/agent-flow-lite/pkg/llm"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence/memory"
	"github.com/Joe-rq/agent-flow-lite/pkg/protocol"
	"github.com/Joe-rq/agent-flow-lite/pkg/registry"
)

// scriptedStreamer plays one fragment script per call, repeating the last
// script when exhausted.
type scriptedStreamer struct {
	scripts [][]llmclient.Fragment
	calls   int
}

func (s *scriptedStreamer) ChatCompletionStream(ctx context.Context, messages []models.Message, opts llmclient.Options) (<-chan llmclient.Fragment, error) {
	script := s.scripts[len(s.scripts)-1]
	if s.calls < len(s.scripts) {
		script = s.scripts[s.calls]
	}
	s.calls++

	out := make(chan llmclient.Fragment, len(script))
	for _, fragment := range script {
		out <- fragment
	}
	close(out)

	return out, nil
}

func newTestEngine(store *memory.Persistence, streamer llmclient.Streamer) *Engine {
	logger := slog.Default()

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	return NewEngine(logger, store, reg, protocol.Dependencies{
		Logger: logger,
		LLM:    streamer,
	})
}

func collect(events <-chan models.Event) []models.Event {
	var collected []models.Event
	for event := range events {
		collected = append(collected, event)
	}

	return collected
}

func eventTypes(events []models.Event) []models.EventType {
	types := make([]models.EventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}

	return types
}

func nodeStarts(events []models.Event) []string {
	var ids []string
	for _, event := range events {
		if event.Type == models.EventNodeStart {
			ids = append(ids, event.Data["node_id"].(string))
		}
	}

	return ids
}

func linearWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:   "wf-1",
		Name: "linear",
		GraphData: models.GraphData{
			Nodes: []models.Node{
				{ID: "s", Type: models.NodeTypeStart},
				{ID: "llm", Type: models.NodeTypeLLM},
				{ID: "e", Type: models.NodeTypeEnd},
			},
			Edges: []models.Edge{
				{Source: "s", Target: "llm"},
				{Source: "llm", Target: "e"},
			},
		},
	}
}

func TestExecuteLinearFlow(t *testing.T) {
	store := memory.NewPersistence()
	streamer := &scriptedStreamer{scripts: [][]llmclient.Fragment{{{Content: "the "}, {Content: "answer"}}}}

	engine := newTestEngine(store, streamer)

	events := collect(engine.Execute(context.Background(), linearWorkflow(), ExecuteRequest{
		InitialInput: "question",
		ExecutionID:  "ex-1",
	}))

	assert.Equal(t, []models.EventType{
		models.EventWorkflowStart,
		models.EventNodeStart, models.EventNodeComplete, // start
		models.EventNodeStart, models.EventToken, models.EventToken, models.EventNodeComplete, // llm
		models.EventNodeStart, models.EventNodeComplete, // end
		models.EventWorkflowComplete,
	}, eventTypes(events))

	assert.Equal(t, "ex-1", events[0].Data["execution_id"])

	final := events[len(events)-1]
	assert.Equal(t, "the answer", final.Data["final_output"])

	exec, err := store.ExecutionByID(context.Background(), "ex-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)
	assert.Equal(t, "the answer", exec.StepOutputs["llm"])
}

func TestExecuteGeneratesExecutionID(t *testing.T) {
	store := memory.NewPersistence()
	engine := newTestEngine(store, &scriptedStreamer{scripts: [][]llmclient.Fragment{{{Content: "x"}}}})

	events := collect(engine.Execute(context.Background(), linearWorkflow(), ExecuteRequest{InitialInput: "q"}))

	id, ok := events[0].Data["execution_id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	_, err := store.ExecutionByID(context.Background(), id)
	assert.NoError(t, err)
}

func TestExecuteNoStartNode(t *testing.T) {
	wf := &models.Workflow{
		ID:   "wf-1",
		Name: "broken",
		GraphData: models.GraphData{
			Nodes: []models.Node{{ID: "e", Type: models.NodeTypeEnd}},
		},
	}

	engine := newTestEngine(memory.NewPersistence(), &scriptedStreamer{scripts: [][]llmclient.Fragment{nil}})

	events := collect(engine.Execute(context.Background(), wf, ExecuteRequest{}))

	require.Len(t, events, 2)
	assert.Equal(t, models.EventWorkflowError, events[1].Type)
	assert.Contains(t, events[1].Data["error"], "no start node")
}

func TestExecuteRejectsCycle(t *testing.T) {
	wf := &models.Workflow{
		ID:   "wf-1",
		Name: "cyclic",
		GraphData: models.GraphData{
			Nodes: []models.Node{
				{ID: "s", Type: models.NodeTypeStart},
				{ID: "a", Type: models.NodeTypeCondition},
				{ID: "b", Type: models.NodeTypeCondition},
			},
			Edges: []models.Edge{
				{Source: "s", Target: "a"},
				{Source: "a", Target: "b"},
				{Source: "b", Target: "a"},
			},
		},
	}

	engine := newTestEngine(memory.NewPersistence(), &scriptedStreamer{scripts: [][]llmclient.Fragment{nil}})

	events := collect(engine.Execute(context.Background(), wf, ExecuteRequest{}))

	last := events[len(events)-1]
	assert.Equal(t, models.EventWorkflowError, last.Type)
	assert.Contains(t, last.Data["error"], "cycle")
}

func TestConditionRoutesBranch(t *testing.T) {
	wf := &models.Workflow{
		ID:   "wf-1",
		Name: "branching",
		GraphData: models.GraphData{
			Nodes: []models.Node{
				{ID: "s", Type: models.NodeTypeStart},
				{ID: "c", Type: models.NodeTypeCondition, Data: map[string]any{
					"expression": `{{s.output}} === "yes"`,
				}},
				{ID: "accepted", Type: models.NodeTypeLLM},
				{ID: "rejected", Type: models.NodeTypeLLM},
			},
			Edges: []models.Edge{
				{Source: "s", Target: "c"},
				{Source: "c", Target: "accepted", SourceHandle: "true"},
				{Source: "c", Target: "rejected", SourceHandle: "false"},
			},
		},
	}

	store := memory.NewPersistence()
	engine := newTestEngine(store, &scriptedStreamer{scripts: [][]llmclient.Fragment{{{Content: "ok"}}}})

	events := collect(engine.Execute(context.Background(), wf, ExecuteRequest{InitialInput: "yes", ExecutionID: "ex-1"}))

	assert.Equal(t, []string{"s", "c", "accepted"}, nodeStarts(events))

	exec, err := store.ExecutionByID(context.Background(), "ex-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "c", "accepted"}, exec.ExecutedNodes)
	assert.NotContains(t, exec.StepOutputs, "rejected")
}

func TestDiamondMergeRunsOnce(t *testing.T) {
	wf := &models.Workflow{
		ID:   "wf-1",
		Name: "diamond",
		GraphData: models.GraphData{
			Nodes: []models.Node{
				{ID: "s", Type: models.NodeTypeStart},
				{ID: "left", Type: models.NodeTypeLLM},
				{ID: "right", Type: models.NodeTypeLLM},
				{ID: "join", Type: models.NodeTypeLLM},
			},
			Edges: []models.Edge{
				{Source: "s", Target: "left"},
				{Source: "s", Target: "right"},
				{Source: "left", Target: "join"},
				{Source: "right", Target: "join"},
			},
		},
	}

	engine := newTestEngine(memory.NewPersistence(), &scriptedStreamer{scripts: [][]llmclient.Fragment{{{Content: "ok"}}}})

	events := collect(engine.Execute(context.Background(), wf, ExecuteRequest{InitialInput: "q"}))

	// BFS order, and the merge node is visited exactly once.
	assert.Equal(t, []string{"s", "left", "right", "join"}, nodeStarts(events))
	assert.Equal(t, models.EventWorkflowComplete, events[len(events)-1].Type)
}

func TestNodeErrorPersistsFailedCheckpoint(t *testing.T) {
	store := memory.NewPersistence()
	streamer := &scriptedStreamer{scripts: [][]llmclient.Fragment{{{Err: errors.New("provider down")}}}}

	engine := newTestEngine(store, streamer)

	events := collect(engine.Execute(context.Background(), linearWorkflow(), ExecuteRequest{
		InitialInput: "question",
		ExecutionID:  "ex-1",
	}))

	last := events[len(events)-1]
	assert.Equal(t, models.EventWorkflowError, last.Type)
	assert.Contains(t, last.Data["error"], "provider down")

	// node_error is forwarded verbatim before the terminal event.
	assert.Equal(t, models.EventNodeError, events[len(events)-2].Type)

	exec, err := store.ExecutionByID(context.Background(), "ex-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, exec.Status)
	assert.Equal(t, []string{"s"}, exec.ExecutedNodes)
}

func TestResumeContinuesFromCheckpoint(t *testing.T) {
	store := memory.NewPersistence()
	wf := linearWorkflow()
	require.NoError(t, store.SaveWorkflow(context.Background(), wf))

	failing := &scriptedStreamer{scripts: [][]llmclient.Fragment{{{Err: errors.New("provider down")}}}}
	collect(newTestEngine(store, failing).Execute(context.Background(), wf, ExecuteRequest{
		InitialInput: "question",
		ExecutionID:  "ex-1",
	}))

	recovered := &scriptedStreamer{scripts: [][]llmclient.Fragment{{{Content: "recovered"}}}}
	events := collect(newTestEngine(store, recovered).Resume(context.Background(), "ex-1"))

	assert.Equal(t, models.EventWorkflowStart, events[0].Type)
	assert.Equal(t, true, events[0].Data["resumed"])

	// The start node already ran; only the remaining frontier executes.
	assert.Equal(t, []string{"llm", "e"}, nodeStarts(events))

	final := events[len(events)-1]
	assert.Equal(t, models.EventWorkflowComplete, final.Type)
	assert.Equal(t, "recovered", final.Data["final_output"])

	exec, err := store.ExecutionByID(context.Background(), "ex-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)
}

func TestResumeMissingExecution(t *testing.T) {
	engine := newTestEngine(memory.NewPersistence(), &scriptedStreamer{scripts: [][]llmclient.Fragment{nil}})

	events := collect(engine.Resume(context.Background(), "ghost"))

	require.Len(t, events, 1)
	assert.Equal(t, models.EventWorkflowError, events[0].Type)
	assert.Contains(t, events[0].Data["error"], "not found")
}

func TestResumeCompletedExecution(t *testing.T) {
	store := memory.NewPersistence()
	wf := linearWorkflow()
	require.NoError(t, store.SaveWorkflow(context.Background(), wf))

	engine := newTestEngine(store, &scriptedStreamer{scripts: [][]llmclient.Fragment{{{Content: "x"}}}})
	collect(engine.Execute(context.Background(), wf, ExecuteRequest{InitialInput: "q", ExecutionID: "ex-1"}))

	events := collect(engine.Resume(context.Background(), "ex-1"))

	require.Len(t, events, 1)
	assert.Equal(t, models.EventWorkflowError, events[0].Type)
	assert.Contains(t, events[0].Data["error"], "already completed")
}

func TestDrainedQueueUsesLastExecutedOutput(t *testing.T) {
	wf := &models.Workflow{
		ID:   "wf-1",
		Name: "no-end",
		GraphData: models.GraphData{
			Nodes: []models.Node{
				{ID: "s", Type: models.NodeTypeStart},
				{ID: "llm", Type: models.NodeTypeLLM},
			},
			Edges: []models.Edge{{Source: "s", Target: "llm"}},
		},
	}

	engine := newTestEngine(memory.NewPersistence(), &scriptedStreamer{scripts: [][]llmclient.Fragment{{{Content: "tail output"}}}})

	events := collect(engine.Execute(context.Background(), wf, ExecuteRequest{InitialInput: "q"}))

	final := events[len(events)-1]
	assert.Equal(t, models.EventWorkflowComplete, final.Type)
	assert.Equal(t, "tail output", final.Data["final_output"])
}

func TestHasCycle(t *testing.T) {
	acyclic := buildGraph(linearWorkflow())
	assert.False(t, acyclic.hasCycle())

	wf := linearWorkflow()
	wf.GraphData.Edges = append(wf.GraphData.Edges, models.Edge{Source: "e", Target: "s"})
	assert.True(t, buildGraph(wf).hasCycle())
}

func TestGraphInputPrefersFirstPredecessorOutput(t *testing.T) {
	wf := linearWorkflow()
	g := buildGraph(wf)

	ec := models.NewExecutionContext("initial", "", "")
	assert.Equal(t, "initial", g.input("llm", ec))

	ec.SetOutput("s", "from start")
	assert.Equal(t, "from start", g.input("llm", ec))
}

package httprequest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joe-rq/agent-flow-lite/pkg/flags"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

func enabledFlags() *flags.Store {
	return flags.NewStore(slog.Default(), map[string]bool{flags.EnableHTTPNode: true}, nil, nil)
}

func getInput(nodeID string, ec *models.ExecutionContext) any {
	value, _ := ec.GetVariable("input")
	return value
}

func run(t *testing.T, store *flags.Store, data map[string]any) ([]models.Event, *models.ExecutionContext) {
	t.Helper()

	ec := models.NewExecutionContext("x", "", "")
	node := &models.Node{ID: "h-1", Type: models.NodeTypeHTTP, Data: data}

	executor := NewHTTPRequestNode(slog.Default(), store, nil)

	var events []models.Event
	for event := range executor.Execute(context.Background(), node, ec, getInput) {
		events = append(events, event)
	}

	return events, ec
}

func TestExecuteDisabledByFlag(t *testing.T) {
	store := flags.NewStore(slog.Default(), map[string]bool{flags.EnableHTTPNode: false}, nil, nil)

	events, ec := run(t, store, map[string]any{"url": "https://example.com"})

	require.Len(t, events, 2)
	assert.Equal(t, models.EventNodeError, events[1].Type)
	assert.Contains(t, events[1].Data["error"], "disabled")
	assert.Equal(t, "", ec.StepOutputs["h-1"])
}

func TestExecuteRejectsMethod(t *testing.T) {
	events, _ := run(t, enabledFlags(), map[string]any{
		"url":    "https://example.com",
		"method": "trace",
	})

	last := events[len(events)-1]
	assert.Equal(t, models.EventNodeError, last.Type)
	assert.Contains(t, last.Data["error"], "not allowed")
}

func TestExecuteBlocksLoopbackTargets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the loopback server")
	}))
	defer server.Close()

	events, ec := run(t, enabledFlags(), map[string]any{"url": server.URL})

	last := events[len(events)-1]
	assert.Equal(t, models.EventNodeError, last.Type)
	assert.Contains(t, last.Data["error"], "url rejected")
	assert.Equal(t, "", ec.StepOutputs["h-1"])
}

func TestExtractPath(t *testing.T) {
	raw := []byte(`{"data":{"items":[{"name":"first"},{"name":"second"}],"count":2}}`)

	assert.Equal(t, "second", extractPath(raw, "data.items.1.name"))
	assert.Equal(t, "2", extractPath(raw, "data.count"))
	assert.Equal(t, "", extractPath(raw, "data.items.9.name"))
	assert.Equal(t, "", extractPath(raw, "data.missing"))
	assert.Equal(t, "", extractPath([]byte("not json"), "data"))
}

func TestClampTimeout(t *testing.T) {
	assert.Equal(t, maxTimeout, clampTimeout(nil))
	assert.Equal(t, 5*time.Second, clampTimeout(5.0))
	assert.Equal(t, minTimeout, clampTimeout(0))
	assert.Equal(t, maxTimeout, clampTimeout(900))
}

func TestBuildBody(t *testing.T) {
	reader, contentType, err := buildBody(nil)
	require.NoError(t, err)
	assert.Nil(t, reader)
	assert.Equal(t, "", contentType)

	reader, contentType, err = buildBody("raw payload")
	require.NoError(t, err)
	raw, _ := io.ReadAll(reader)
	assert.Equal(t, "raw payload", string(raw))
	assert.Equal(t, "", contentType)

	reader, contentType, err = buildBody(map[string]any{"k": "v"})
	require.NoError(t, err)
	raw, _ = io.ReadAll(reader)
	assert.JSONEq(t, `{"k":"v"}`, string(raw))
	assert.Equal(t, "application/json", contentType)

	_, _, err = buildBody(42)
	assert.Error(t, err)
}

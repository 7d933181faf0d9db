package sse

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	record, err := Encode(models.NewToken("llm-1", "Hel"))
	require.NoError(t, err)

	text := string(record)
	assert.True(t, strings.HasPrefix(text, "event: token\n"))
	assert.Contains(t, text, `"node_id":"llm-1"`)
	assert.Contains(t, text, `"content":"Hel"`)
	assert.True(t, strings.HasSuffix(text, "\n\n"))
}

func TestComment(t *testing.T) {
	assert.Equal(t, ": keepalive\n\n", string(Comment("keepalive")))
}

func TestParseFrame(t *testing.T) {
	frame, ok := ParseFrame("event: token\ndata: {\"content\":\"hi\"}")
	require.True(t, ok)
	assert.Equal(t, "token", frame.Event)
	assert.Equal(t, "hi", frame.Data["content"])

	_, ok = ParseFrame(": keepalive")
	assert.False(t, ok)

	_, ok = ParseFrame("event: token\ndata: not-json")
	assert.False(t, ok)
}

func TestEncodeParseRoundTrip(t *testing.T) {
	record, err := Encode(models.NewThought("k-1", "retrieval", map[string]any{"status": "start"}))
	require.NoError(t, err)

	frame, ok := ParseFrame(strings.TrimSuffix(string(record), "\n\n"))
	require.True(t, ok)
	assert.Equal(t, "thought", frame.Event)
	assert.Equal(t, "retrieval", frame.Data["type_detail"])
	assert.Equal(t, "start", frame.Data["status"])
}

func TestWriterStreamsUntilClose(t *testing.T) {
	events := make(chan models.Event, 2)
	events <- models.NewToken("n", "a")
	events <- models.NewToken("n", "b")
	close(events)

	var buf bytes.Buffer
	writer := NewWriter(time.Minute)

	err := writer.Stream(context.Background(), bufio.NewWriter(&buf), events)
	require.NoError(t, err)

	records := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	assert.Len(t, records, 2)
	assert.Contains(t, records[0], `"content":"a"`)
	assert.Contains(t, records[1], `"content":"b"`)
}

func TestWriterHeartbeat(t *testing.T) {
	events := make(chan models.Event)

	var buf bytes.Buffer
	writer := NewWriter(10 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- writer.Stream(context.Background(), bufio.NewWriter(&buf), events)
	}()

	time.Sleep(50 * time.Millisecond)
	close(events)
	require.NoError(t, <-done)

	assert.Contains(t, buf.String(), ": keepalive\n\n")
}

func TestWriterStopsOnCancel(t *testing.T) {
	events := make(chan models.Event)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := NewWriter(time.Minute).Stream(ctx, bufio.NewWriter(&buf), events)
	assert.ErrorIs(t, err, context.Canceled)
}

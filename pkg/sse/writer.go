package sse

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

// DefaultHeartbeat is how long the stream may stay silent before a keepalive
// comment is written so intermediaries do not drop the connection.
const DefaultHeartbeat = 15 * time.Second

// Writer pumps engine events onto a buffered wire stream, interleaving
// keepalive comments during silence. It stops as soon as the event channel
// closes or the context is cancelled.
type Writer struct {
	heartbeat time.Duration
	keepalive string
}

// NewWriter builds a Writer. A non-positive heartbeat falls back to
// DefaultHeartbeat.
func NewWriter(heartbeat time.Duration) *Writer {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	return &Writer{heartbeat: heartbeat, keepalive: "keepalive"}
}

// Stream consumes events until the channel closes, encoding each one and
// flushing after every record so the caller sees progress immediately.
func (w *Writer) Stream(ctx context.Context, out *bufio.Writer, events <-chan models.Event) error {
	timer := time.NewTimer(w.heartbeat)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-events:
			if !ok {
				return nil
			}

			record, err := Encode(event)
			if err != nil {
				return err
			}

			if err := writeRecord(out, record); err != nil {
				return fmt.Errorf("failed to write event record: %w", err)
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.heartbeat)

		case <-timer.C:
			if err := writeRecord(out, Comment(w.keepalive)); err != nil {
				return fmt.Errorf("failed to write keepalive: %w", err)
			}

			timer.Reset(w.heartbeat)
		}
	}
}

func writeRecord(out *bufio.Writer, record []byte) error {
	if _, err := out.Write(record); err != nil {
		return err
	}

	return out.Flush()
}

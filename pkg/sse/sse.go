// Package sse serialises engine events into the line-oriented text event
// stream delivered to callers, and parses the same grammar back for
// sub-stream translation (the skill node consumes a skill execution's
// encoded frames and re-emits selected events into its parent stream).
package sse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

// Encode renders one event as a wire record:
//
//	event: <type>\n
//	data: <compact JSON>\n
//	\n
func Encode(event models.Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event.Type, err)
	}

	return []byte("event: " + string(event.Type) + "\ndata: " + string(payload) + "\n\n"), nil
}

// Comment renders a keepalive comment record.
func Comment(token string) []byte {
	return []byte(": " + token + "\n\n")
}

// Frame is a decoded wire record.
type Frame struct {
	Event string
	Data  map[string]any
}

// ParseFrame decodes a single "event:/data:" record. Comment records and
// malformed frames return ok=false and are skipped by callers.
func ParseFrame(raw string) (Frame, bool) {
	var frame Frame

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")

		switch {
		case strings.HasPrefix(line, "event:"):
			frame.Event = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			body := strings.TrimSpace(line[len("data:"):])
			if err := json.Unmarshal([]byte(body), &frame.Data); err != nil {
				return Frame{}, false
			}
		}
	}

	if frame.Event == "" {
		return Frame{}, false
	}

	return frame, true
}

package protocol

import (
	"context"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

// Emit delivers one event to the consumer, honouring cancellation. A false
// return means the consumer is gone and the producer should stop.
func Emit(ctx context.Context, out chan<- models.Event, event models.Event) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

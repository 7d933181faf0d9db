package cmd

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/Joe-rq/agent-flow-lite/pkg/eventbus"
)

// NewEventBus builds the in-process lifecycle notification bus.
func NewEventBus(logger *slog.Logger) eventbus.EventBus {
	return eventbus.NewGoChannelEventBus(watermill.NewSlogLogger(logger))
}

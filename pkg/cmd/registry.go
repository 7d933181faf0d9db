package cmd

import (
	"log/slog"

	"github.com/Joe-rq/agent-flow-lite/pkg/registry"
)

// NewRegistry builds a node registry with all built-in node types.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	return reg
}

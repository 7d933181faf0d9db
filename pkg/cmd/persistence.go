// Package cmd provides common initialization for command-line entrypoints.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Joe-rq/agent-flow-lite/pkg/persistence"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence/postgresql"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence/sqlite"
)

// NewPersistence builds the store for a database URL. postgres:// and
// postgresql:// select PostgreSQL; sqlite:// (or a bare path) selects the
// embedded SQLite store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to open postgresql store: %w", err))
		}

		return store

	default:
		store, err := sqlite.NewPersistence(ctx, logger, strings.TrimPrefix(databaseURL, "sqlite://"))
		if err != nil {
			panic(fmt.Errorf("failed to open sqlite store: %w", err))
		}

		return store
	}
}

// Package sqlite provides the embedded persistence backend for
// single-binary and development setups.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/Joe-rq/agent-flow-lite/pkg/persistence/sqlbase"
)

// Persistence is the SQLite-backed store.
type Persistence struct {
	*sqlbase.Store
}

// NewPersistence opens (or creates) the database file, migrates and
// returns the ready store. ":memory:" yields an ephemeral database.
func NewPersistence(ctx context.Context, logger *slog.Logger, path string) (*Persistence, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// The driver serialises access to one connection; SQLite tolerates a
	// single writer only.
	database.SetMaxOpenConns(1)

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := sqlbase.NewStore(ctx, logger, database, sqlbase.Dialect{
		Name:       "sqlite",
		Rebind:     sqlbase.Passthrough,
		Migrations: migrations(),
	})
	if err != nil {
		return nil, err
	}

	return &Persistence{Store: store}, nil
}

// Package postgresql provides the PostgreSQL persistence backend.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"

	"github.com/Joe-rq/agent-flow-lite/pkg/persistence/sqlbase"
)

// Persistence is the PostgreSQL-backed store.
type Persistence struct {
	*sqlbase.Store
}

// NewPersistence connects, migrates and returns the ready store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := sqlbase.NewStore(ctx, logger, database, sqlbase.Dialect{
		Name:       "postgresql",
		Rebind:     sqlbase.BindDollar,
		Migrations: migrations(),
	})
	if err != nil {
		return nil, err
	}

	return &Persistence{Store: store}, nil
}

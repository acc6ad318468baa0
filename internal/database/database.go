// Package database opens the configured ledger store.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"iou-ledger/internal/config"
	"iou-ledger/internal/logger"
	"iou-ledger/internal/repository"
	"iou-ledger/internal/repository/postgres"
	"iou-ledger/internal/repository/sqlite"
)

// Handle is an open, migrated store.
type Handle struct {
	Ledger repository.LedgerRepository
	DB     *sql.DB
	Driver string
}

func (h *Handle) Close() error {
	return h.DB.Close()
}

// Open connects to the driver named in cfg and applies the schema.
func Open(ctx context.Context, cfg *config.Config) (*Handle, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		logger.Info("Opening SQLite database", "path", cfg.Database.Path)
		store, err := sqlite.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		return &Handle{Ledger: store, DB: store.DB(), Driver: config.DriverSQLite}, nil

	case config.DriverPostgres:
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Database connection established")

		store := postgres.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return &Handle{Ledger: store, DB: db, Driver: config.DriverPostgres}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

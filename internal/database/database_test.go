package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iou-ledger/internal/config"
)

func TestOpen(t *testing.T) {
	t.Run("SQLite", func(t *testing.T) {
		cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "l.db")}}
		h, err := Open(context.Background(), cfg)
		require.NoError(t, err)
		defer h.Close()
		assert.Equal(t, config.DriverSQLite, h.Driver)

		ids, err := h.Ledger.ListDebtIDs(context.Background())
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		_, err := Open(context.Background(), &config.Config{Database: config.DatabaseConfig{Driver: "mysql"}})
		assert.ErrorContains(t, err, "unsupported database driver")
	})
}

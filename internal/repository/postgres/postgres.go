package postgres

import (
	"database/sql"

	_ "github.com/lib/pq"

	"iou-ledger/internal/repository"
)

type Store struct {
	db *sql.DB
	repository.LedgerRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:               db,
		LedgerRepository: NewLedgerRepository(db),
	}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

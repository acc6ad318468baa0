package service

import (
	"context"
	"fmt"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/repository"
)

// DuplicateGuard rejects a batch whose (owner code, date, source type) key
// already occurs in the registry. The check covers the whole batch: callers
// run it before writing any row and inside the same transaction.
type DuplicateGuard struct{}

func NewDuplicateGuard() *DuplicateGuard {
	return &DuplicateGuard{}
}

func (g *DuplicateGuard) Check(ctx context.Context, reg repository.IDRegistry, batchKey string) error {
	exists, err := reg.BatchKeyExists(ctx, batchKey)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("batch %s: %w", batchKey, domain.ErrDuplicateBatch)
	}
	return nil
}

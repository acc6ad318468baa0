package service

import (
	"context"
	"fmt"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/repository"
)

type AllocationRequest struct {
	OwnerCode  string
	Date       string
	SourceType domain.SourceType
	// Sequences are the source-supplied sequences of a batch. Ignored for
	// manual entries, which take the next free sequence.
	Sequences []int
}

// IdentifierAllocator hands out debt ids. Callers hold the batch key lock of
// the request for the whole transaction, so the registry cannot change
// between the check and the insert.
type IdentifierAllocator struct {
	guard *DuplicateGuard
}

func NewIdentifierAllocator(guard *DuplicateGuard) *IdentifierAllocator {
	return &IdentifierAllocator{guard: guard}
}

func (a *IdentifierAllocator) Allocate(ctx context.Context, reg repository.IDRegistry, req AllocationRequest) ([]domain.DebtID, error) {
	code, err := domain.NormalizeOwnerCode(req.OwnerCode)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateDate(req.Date); err != nil {
		return nil, err
	}
	if err := req.SourceType.Validate(); err != nil {
		return nil, err
	}
	base := domain.DebtID{OwnerCode: code, Date: req.Date, SourceType: req.SourceType}

	if !req.SourceType.IsBatch() {
		seq, err := a.nextFree(ctx, reg, base.BatchKey())
		if err != nil {
			return nil, err
		}
		base.Sequence = seq
		return []domain.DebtID{base}, nil
	}

	if len(req.Sequences) == 0 {
		return nil, fmt.Errorf("%w: batch %s requests no sequences", domain.ErrInvalidArgument, base.BatchKey())
	}
	if err := a.guard.Check(ctx, reg, base.BatchKey()); err != nil {
		return nil, err
	}
	ids := make([]domain.DebtID, 0, len(req.Sequences))
	seen := make(map[int]bool, len(req.Sequences))
	for _, seq := range req.Sequences {
		if !domain.ValidSequence(seq) || seen[seq] {
			return nil, fmt.Errorf("%w: sequence %d of batch %s", domain.ErrInvalidArgument, seq, base.BatchKey())
		}
		seen[seq] = true
		id := base
		id.Sequence = seq
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *IdentifierAllocator) nextFree(ctx context.Context, reg repository.IDRegistry, batchKey string) (int, error) {
	used, err := reg.UsedSequences(ctx, batchKey)
	if err != nil {
		return 0, err
	}
	taken := make(map[int]bool, len(used))
	for _, seq := range used {
		taken[seq] = true
	}
	for seq := domain.MinSequence; seq <= domain.MaxSequence; seq++ {
		if !taken[seq] {
			return seq, nil
		}
	}
	return 0, fmt.Errorf("%s: all %d sequences in use: %w", batchKey, domain.MaxSequence, domain.ErrCapacityExceeded)
}

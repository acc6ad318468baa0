package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/service"
)

type fakeRegistry struct {
	used map[string][]int
}

func (r fakeRegistry) BatchKeyExists(ctx context.Context, batchKey string) (bool, error) {
	return len(r.used[batchKey]) > 0, nil
}

func (r fakeRegistry) UsedSequences(ctx context.Context, batchKey string) ([]int, error) {
	return r.used[batchKey], nil
}

func TestIdentifierAllocator_Allocate(t *testing.T) {
	ctx := context.Background()
	alloc := service.NewIdentifierAllocator(service.NewDuplicateGuard())

	reg := fakeRegistry{used: map[string][]int{
		"ABC240101H": {1, 2, 4},
		"ABC240101E": {1},
	}}

	t.Run("ManualTakesFirstGap", func(t *testing.T) {
		ids, err := alloc.Allocate(ctx, reg, service.AllocationRequest{OwnerCode: "abc", Date: "240101", SourceType: domain.SourceHand})
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.Equal(t, "ABC240101H03", ids[0].String())
	})

	t.Run("ManualCapacity", func(t *testing.T) {
		full := make([]int, 0, domain.MaxSequence)
		for i := domain.MinSequence; i <= domain.MaxSequence; i++ {
			full = append(full, i)
		}
		_, err := alloc.Allocate(ctx, fakeRegistry{used: map[string][]int{"ABC240101H": full}},
			service.AllocationRequest{OwnerCode: "ABC", Date: "240101", SourceType: domain.SourceHand})
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	})

	t.Run("BatchKeyAlreadyPresent", func(t *testing.T) {
		_, err := alloc.Allocate(ctx, reg, service.AllocationRequest{OwnerCode: "ABC", Date: "240101", SourceType: domain.SourceSpreadsheet, Sequences: []int{2}})
		assert.ErrorIs(t, err, domain.ErrDuplicateBatch)
	})

	t.Run("BatchUsesSuppliedSequences", func(t *testing.T) {
		ids, err := alloc.Allocate(ctx, reg, service.AllocationRequest{OwnerCode: "A", Date: "240102", SourceType: domain.SourceSpreadsheet, Sequences: []int{5, 9}})
		require.NoError(t, err)
		assert.Equal(t, "AAA240102E05", ids[0].String())
		assert.Equal(t, "AAA240102E09", ids[1].String())
	})

	t.Run("BatchRejectsBadSequences", func(t *testing.T) {
		for _, seqs := range [][]int{nil, {0}, {100}, {3, 3}} {
			_, err := alloc.Allocate(ctx, reg, service.AllocationRequest{OwnerCode: "ABC", Date: "240103", SourceType: domain.SourceSpreadsheet, Sequences: seqs})
			assert.ErrorIs(t, err, domain.ErrInvalidArgument, "%v", seqs)
		}
	})
}

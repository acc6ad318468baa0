package grpc

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"iou-ledger/internal/domain"
)

func TestMapFilterMessageToDomain(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f, err := MapFilterMessageToDomain(FilterMessage{
			DateFrom: "240101",
			Client:   "ACME",
			Rest:     &AmountRangeMessage{Center: "50", Radius: "5"},
			Statuses: []int{0, 1},
		})
		require.NoError(t, err)
		assert.Equal(t, "240101", f.DateFrom)
		assert.Nil(t, f.Total)
		require.NotNil(t, f.Rest)
		assert.True(t, f.Rest.Radius.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, []domain.Status{domain.StatusUnpaid, domain.StatusPartiallyPaid}, f.Statuses)
	})

	t.Run("NegativeRadius", func(t *testing.T) {
		_, err := MapFilterMessageToDomain(FilterMessage{Total: &AmountRangeMessage{Center: "1", Radius: "-1"}})
		assert.ErrorIs(t, err, domain.ErrInvalidFilter)
	})
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{domain.ErrInvalidAmount, codes.InvalidArgument},
		{domain.ErrDuplicateBatch, codes.AlreadyExists},
		{domain.ErrCapacityExceeded, codes.ResourceExhausted},
		{domain.ErrPaymentNotFound, codes.NotFound},
		{domain.ErrHasPayments, codes.FailedPrecondition},
		{domain.ErrForbidden, codes.PermissionDenied},
		{domain.ErrConcurrentModification, codes.Aborted},
		{domain.ErrUnavailable, codes.Unavailable},
		{assert.AnError, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}

func TestFromStatus_KeepsErrorKind(t *testing.T) {
	kinds := []error{
		domain.ErrInvalidAmount, domain.ErrInvalidFilter, domain.ErrInvalidArgument,
		domain.ErrDuplicateBatch, domain.ErrCapacityExceeded,
		domain.ErrDebtNotFound, domain.ErrPaymentNotFound, domain.ErrHasPayments,
		domain.ErrForbidden, domain.ErrConcurrentModification, domain.ErrUnavailable,
	}
	for _, kind := range kinds {
		t.Run(kind.Error(), func(t *testing.T) {
			err := FromStatus(toStatus(fmt.Errorf("debt ABC240101H01: %w", kind)))
			assert.ErrorIs(t, err, kind)
			for _, other := range kinds {
				if other != kind {
					assert.NotErrorIs(t, err, other)
				}
			}
			assert.Equal(t, "debt ABC240101H01: "+kind.Error(), err.Error())
		})
	}

	t.Run("CodeOnlyFallback", func(t *testing.T) {
		err := FromStatus(status.Error(codes.InvalidArgument, "bad"))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		err = FromStatus(status.Error(codes.NotFound, "gone"))
		assert.ErrorIs(t, err, domain.ErrDebtNotFound)
	})

	t.Run("UnknownPassesThrough", func(t *testing.T) {
		err := toStatus(assert.AnError)
		assert.Equal(t, err, FromStatus(err))
	})
}

func TestMapDomainDebtToMessage(t *testing.T) {
	d := &domain.Debt{
		ID:          "ABC240101H01",
		TotalAmount: decimal.RequireFromString("100"),
		Status:      domain.StatusPartiallyPaid,
		Lines:       []domain.DebtLine{{Position: 1, Client: "c", Amount: decimal.RequireFromString("100")}},
		Payments:    []domain.Payment{{ID: "p", Amount: decimal.RequireFromString("25.5")}},
	}
	msg := MapDomainDebtToMessage(d)
	assert.Equal(t, "100.00", msg.TotalAmount)
	assert.Equal(t, "25.50", msg.Paid)
	assert.Equal(t, "74.50", msg.Rest)
	assert.Equal(t, 1, msg.StatusCode)
	assert.Equal(t, "", msg.CreatedAt)
}

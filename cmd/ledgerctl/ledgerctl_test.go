package main

import (
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ledgergrpc "iou-ledger/internal/api/grpc"
	"iou-ledger/internal/domain"
)

func TestParseFilterFlag(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		msg, err := parseFilterFlag("client=ACME&status=UNPAID,2&rest=100&rest_radius=5")
		require.NoError(t, err)
		assert.Equal(t, "ACME", msg.Client)
		assert.Equal(t, []int{0, 2}, msg.Statuses)
		require.NotNil(t, msg.Rest)
		assert.Equal(t, "100", msg.Rest.Center)
		assert.Equal(t, "5", msg.Rest.Radius)
		assert.Nil(t, msg.Total)
	})

	t.Run("Empty", func(t *testing.T) {
		msg, err := parseFilterFlag("")
		require.NoError(t, err)
		assert.Equal(t, ledgergrpc.FilterMessage{}, msg)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := parseFilterFlag("status=LOST")
		assert.ErrorIs(t, err, domain.ErrInvalidFilter)
	})
}

func TestSummaryMarkdown(t *testing.T) {
	md := summaryMarkdown(&ledgergrpc.SummaryResponse{
		Count: 2, Total: "150.00", Paid: "50.00", Rest: "100.00",
		ByStatus: []ledgergrpc.StatusTotalsMessage{
			{Status: "UNPAID", Count: 1, Total: "100.00", Paid: "0.00", Rest: "100.00"},
			{Status: "PAID", Count: 1, Total: "50.00", Paid: "50.00", Rest: "0.00"},
		},
	})
	assert.Contains(t, md, "2 debts, total 150.00, paid 50.00, rest 100.00.")
	assert.Contains(t, md, "| UNPAID | 1 | 100.00 | 0.00 | 100.00 |")
	assert.Contains(t, md, "| PAID | 1 | 50.00 | 50.00 | 0.00 |")
}

func TestCommandsHaveCompletion(t *testing.T) {
	c := completion()
	for _, cmd := range commands {
		assert.Contains(t, c.Sub, cmd.Name())
	}
}

func TestRPCFailure(t *testing.T) {
	withReason := func(code codes.Code, reason string) error {
		st, err := status.New(code, "rejected").WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ledgergrpc.ErrorDomain})
		require.NoError(t, err)
		return st.Err()
	}

	tests := []struct {
		name string
		err  error
		want subcommands.ExitStatus
	}{
		{name: "InvalidAmount", err: withReason(codes.InvalidArgument, "INVALID_AMOUNT"), want: subcommands.ExitUsageError},
		{name: "DuplicateBatch", err: withReason(codes.AlreadyExists, "DUPLICATE_BATCH"), want: subcommands.ExitUsageError},
		{name: "DebtNotFound", err: withReason(codes.NotFound, "DEBT_NOT_FOUND"), want: subcommands.ExitFailure},
		{name: "Unavailable", err: status.Error(codes.Unavailable, "connection refused"), want: subcommands.ExitFailure},
		{name: "Internal", err: status.Error(codes.Internal, "boom"), want: subcommands.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rpcFailure(tt.err))
		})
	}
}

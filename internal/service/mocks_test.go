package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/repository"
)

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) WithinTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockLedgerRepo) GetDebt(ctx context.Context, id string) (*domain.Debt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Debt), args.Error(1)
}

func (m *MockLedgerRepo) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockLedgerRepo) QueryDebts(ctx context.Context, q repository.DebtQuery) ([]domain.Debt, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]domain.Debt), args.Error(1)
}

func (m *MockLedgerRepo) ListDebtIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedgerRepo) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

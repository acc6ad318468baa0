package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"iou-ledger/internal/domain"
)

// DebtQuery narrows a debt listing. OwnerID, when set, restricts results to
// rows created by that actor; the service fills it from the caller's scope.
type DebtQuery struct {
	Filter  domain.DebtFilter
	OwnerID string
}

// IDRegistry is the read-only view of allocated debt identifiers. The debts
// table is the registry: an identifier is allocated exactly when a debt row
// carries it.
type IDRegistry interface {
	BatchKeyExists(ctx context.Context, batchKey string) (bool, error)
	UsedSequences(ctx context.Context, batchKey string) ([]int, error)
}

// LedgerTx is the set of operations available inside one atomic unit.
// Implementations lock the debt row in LockDebt and hold the lock until the
// unit commits or rolls back.
type LedgerTx interface {
	IDRegistry

	// LockBatchKey serializes allocation and duplicate checks for one key.
	LockBatchKey(ctx context.Context, batchKey string) error
	// LockDebt returns the debt header (no lines or payments) and locks it.
	LockDebt(ctx context.Context, id string) (*domain.Debt, error)
	InsertDebt(ctx context.Context, debt *domain.Debt) error
	DeleteDebt(ctx context.Context, id string) error
	SetDebtStatus(ctx context.Context, id string, status domain.Status) error

	CountPayments(ctx context.Context, debtID string) (int, error)
	SumPayments(ctx context.Context, debtID string) (decimal.Decimal, error)
	GetPaymentForUpdate(ctx context.Context, id string) (*domain.Payment, error)
	InsertPayment(ctx context.Context, payment *domain.Payment) error
	UpdatePayment(ctx context.Context, payment *domain.Payment) error
	DeletePayment(ctx context.Context, id string) error
}

type LedgerRepository interface {
	// WithinTx runs fn in one transaction. fn's error rolls it back.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// GetDebt loads a debt with its lines and payments from one snapshot.
	GetDebt(ctx context.Context, id string) (*domain.Debt, error)
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	// QueryDebts applies the date, status, owner and line criteria of q and
	// returns fully loaded debts ordered by issue date then id. Amount ranges
	// are left to the caller.
	QueryDebts(ctx context.Context, q DebtQuery) ([]domain.Debt, error)
	ListDebtIDs(ctx context.Context) ([]string, error)

	Migrate(ctx context.Context) error
}

package service

import (
	"context"

	"iou-ledger/internal/domain"
)

// LedgerService is the ledger store boundary. Every call runs under the
// caller's ActorContext and enforces its scope itself.
type LedgerService interface {
	CreateDebt(ctx context.Context, actor domain.ActorContext, in domain.NewDebt) (*domain.Debt, error)
	ImportBatch(ctx context.Context, actor domain.ActorContext, batch domain.Batch) ([]domain.Debt, error)
	GetDebt(ctx context.Context, actor domain.ActorContext, id string) (*domain.Debt, error)
	QueryDebts(ctx context.Context, actor domain.ActorContext, filter domain.DebtFilter) ([]domain.Debt, error)
	DeleteDebt(ctx context.Context, actor domain.ActorContext, id string) error

	AddPayment(ctx context.Context, actor domain.ActorContext, debtID string, in domain.PaymentInput) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, actor domain.ActorContext, paymentID string, in domain.PaymentInput) (*domain.Payment, error)
	RemovePayment(ctx context.Context, actor domain.ActorContext, paymentID string) error
	ListPayments(ctx context.Context, actor domain.ActorContext, debtID string) ([]domain.Payment, error)

	Summarize(ctx context.Context, actor domain.ActorContext, filter domain.DebtFilter) (*domain.Summary, error)
	// ReconcileStatuses re-derives every debt's status and returns how many
	// were repaired. Admin only.
	ReconcileStatuses(ctx context.Context, actor domain.ActorContext) (int, error)
}

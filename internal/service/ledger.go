package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/logger"
	"iou-ledger/internal/repository"
)

type LedgerOptions struct {
	// MaxRetries bounds how often a unit that lost a concurrency race is re-run.
	MaxRetries       int
	OperationTimeout time.Duration
}

type ledgerService struct {
	repo      repository.LedgerRepository
	allocator *IdentifierAllocator
	opts      LedgerOptions
	now       func() time.Time
	newID     func() string
}

func NewLedgerService(repo repository.LedgerRepository, opts LedgerOptions) LedgerService {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &ledgerService{
		repo:      repo,
		allocator: NewIdentifierAllocator(NewDuplicateGuard()),
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *ledgerService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.OperationTimeout)
}

// runTx runs fn as one atomic unit, re-running it when the store reports a
// concurrent modification. fn must not leak state from a failed attempt.
func (s *ledgerService) runTx(ctx context.Context, op string, fn func(tx repository.LedgerTx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		err = s.repo.WithinTx(ctx, func(tx repository.LedgerTx) error {
			return fn(tx)
		})
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		logger.Warn("Retrying after concurrent modification", "operation", op, "attempt", attempt+1, "error", err)
	}
	return err
}

// rederive recomputes the debt's status from its committed payments and
// stores it when it changed.
func (s *ledgerService) rederive(ctx context.Context, tx repository.LedgerTx, debt *domain.Debt) (bool, error) {
	paid, err := tx.SumPayments(ctx, debt.ID)
	if err != nil {
		return false, err
	}
	status := domain.DeriveStatus(debt.TotalAmount, paid)
	if status == debt.Status {
		return false, nil
	}
	if err := tx.SetDebtStatus(ctx, debt.ID, status); err != nil {
		return false, err
	}
	debt.Status = status
	return true, nil
}

func (s *ledgerService) CreateDebt(ctx context.Context, actor domain.ActorContext, in domain.NewDebt) (*domain.Debt, error) {
	logger.EnterMethod("ledgerService.CreateDebt", "actorID", actor.ActorID, "ownerCode", in.OwnerCode, "date", in.IssueDate)

	source := in.SourceType
	if source == "" {
		source = domain.SourceHand
	}
	if source.IsBatch() {
		debts, err := s.ImportBatch(ctx, actor, domain.Batch{
			OwnerCode:  in.OwnerCode,
			Date:       in.IssueDate,
			SourceType: source,
			OwnerID:    in.OwnerID,
			Groups:     []domain.BatchGroup{{Sequence: domain.MinSequence, Lines: in.Lines}},
		})
		if err != nil {
			logger.ExitMethodWithError("ledgerService.CreateDebt", err, "actorID", actor.ActorID)
			return nil, err
		}
		logger.ExitMethod("ledgerService.CreateDebt", "debtID", debts[0].ID)
		return &debts[0], nil
	}

	debt, err := s.createManual(ctx, actor, in)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.CreateDebt", err, "actorID", actor.ActorID)
		return nil, err
	}
	logger.ExitMethod("ledgerService.CreateDebt", "debtID", debt.ID, "status", debt.Status.String())
	return debt, nil
}

func (s *ledgerService) createManual(ctx context.Context, actor domain.ActorContext, in domain.NewDebt) (*domain.Debt, error) {
	scope, err := newAccessScope(actor)
	if err != nil {
		return nil, err
	}
	code, err := domain.NormalizeOwnerCode(in.OwnerCode)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateDate(in.IssueDate); err != nil {
		return nil, err
	}
	owner, err := scope.ownerFor(in.OwnerID)
	if err != nil {
		return nil, err
	}
	lines, total, err := domain.BuildLines(in.Lines)
	if err != nil {
		return nil, err
	}

	var created *domain.Debt
	err = s.runTx(ctx, "CreateDebt", func(tx repository.LedgerTx) error {
		key := domain.BatchKey(code, in.IssueDate, domain.SourceHand)
		if err := tx.LockBatchKey(ctx, key); err != nil {
			return err
		}
		ids, err := s.allocator.Allocate(ctx, tx, AllocationRequest{
			OwnerCode:  code,
			Date:       in.IssueDate,
			SourceType: domain.SourceHand,
		})
		if err != nil {
			return err
		}
		debt := newDebtRecord(ids[0], owner, lines, total)
		if err := tx.InsertDebt(ctx, debt); err != nil {
			return err
		}
		created = debt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func newDebtRecord(id domain.DebtID, owner string, lines []domain.DebtLine, total decimal.Decimal) *domain.Debt {
	return &domain.Debt{
		ID:          id.String(),
		OwnerCode:   id.OwnerCode,
		OwnerID:     owner,
		IssueDate:   id.Date,
		SourceType:  id.SourceType,
		TotalAmount: total,
		Status:      domain.DeriveStatus(total, decimal.Zero),
		Lines:       append([]domain.DebtLine(nil), lines...),
		Payments:    []domain.Payment{},
	}
}

type parsedGroup struct {
	sequence int
	lines    []domain.DebtLine
	total    decimal.Decimal
}

func (s *ledgerService) ImportBatch(ctx context.Context, actor domain.ActorContext, batch domain.Batch) ([]domain.Debt, error) {
	logger.EnterMethod("ledgerService.ImportBatch", "actorID", actor.ActorID, "ownerCode", batch.OwnerCode, "date", batch.Date, "groups", len(batch.Groups))

	debts, err := s.importBatch(ctx, actor, batch)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.ImportBatch", err, "actorID", actor.ActorID, "ownerCode", batch.OwnerCode, "date", batch.Date)
		return nil, err
	}

	logger.Info("Batch imported", "batchKey", debts[0].BatchKey(), "debts", len(debts), "actorID", actor.ActorID)
	logger.ExitMethod("ledgerService.ImportBatch", "count", len(debts))
	return debts, nil
}

func (s *ledgerService) importBatch(ctx context.Context, actor domain.ActorContext, batch domain.Batch) ([]domain.Debt, error) {
	scope, err := newAccessScope(actor)
	if err != nil {
		return nil, err
	}
	b, err := batch.Normalize()
	if err != nil {
		return nil, err
	}
	owner, err := scope.ownerFor(b.OwnerID)
	if err != nil {
		return nil, err
	}

	// Every group is parsed before the transaction starts so a bad amount
	// anywhere rejects the batch without touching the store.
	groups := make([]parsedGroup, 0, len(b.Groups))
	sequences := make([]int, 0, len(b.Groups))
	for _, g := range b.Groups {
		lines, total, err := domain.BuildLines(g.Lines)
		if err != nil {
			return nil, fmt.Errorf("group %02d: %w", g.Sequence, err)
		}
		groups = append(groups, parsedGroup{sequence: g.Sequence, lines: lines, total: total})
		sequences = append(sequences, g.Sequence)
	}

	var created []domain.Debt
	err = s.runTx(ctx, "ImportBatch", func(tx repository.LedgerTx) error {
		if err := tx.LockBatchKey(ctx, b.Key()); err != nil {
			return err
		}
		ids, err := s.allocator.Allocate(ctx, tx, AllocationRequest{
			OwnerCode:  b.OwnerCode,
			Date:       b.Date,
			SourceType: b.SourceType,
			Sequences:  sequences,
		})
		if err != nil {
			return err
		}
		debts := make([]domain.Debt, 0, len(groups))
		for i, g := range groups {
			debt := newDebtRecord(ids[i], owner, g.lines, g.total)
			if err := tx.InsertDebt(ctx, debt); err != nil {
				return fmt.Errorf("group %02d: %w", g.sequence, err)
			}
			debts = append(debts, *debt)
		}
		created = debts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *ledgerService) GetDebt(ctx context.Context, actor domain.ActorContext, id string) (*domain.Debt, error) {
	scope, err := newAccessScope(actor)
	if err != nil {
		return nil, err
	}
	if err := checkDebtID(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	debt, err := s.repo.GetDebt(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scope.authorizeRead(debt); err != nil {
		return nil, err
	}
	return debt, nil
}

func (s *ledgerService) QueryDebts(ctx context.Context, actor domain.ActorContext, filter domain.DebtFilter) ([]domain.Debt, error) {
	logger.EnterMethod("ledgerService.QueryDebts", "actorID", actor.ActorID, "role", string(actor.Role))

	scope, err := newAccessScope(actor)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.QueryDebts", err, "actorID", actor.ActorID)
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		logger.ExitMethodWithError("ledgerService.QueryDebts", err, "actorID", actor.ActorID)
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.repo.QueryDebts(ctx, repository.DebtQuery{Filter: filter, OwnerID: scope.ownerFilter()})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.QueryDebts", err, "actorID", actor.ActorID)
		return nil, err
	}

	debts := make([]domain.Debt, 0, len(rows))
	for i := range rows {
		if filter.MatchAmounts(&rows[i]) {
			debts = append(debts, rows[i])
		}
	}

	logger.ExitMethod("ledgerService.QueryDebts", "actorID", actor.ActorID, "count", len(debts))
	return debts, nil
}

func (s *ledgerService) DeleteDebt(ctx context.Context, actor domain.ActorContext, id string) error {
	logger.EnterMethod("ledgerService.DeleteDebt", "actorID", actor.ActorID, "debtID", id)

	scope, err := newAccessScope(actor)
	if err == nil {
		err = checkDebtID(id)
	}
	if err != nil {
		logger.ExitMethodWithError("ledgerService.DeleteDebt", err, "debtID", id)
		return err
	}

	err = s.runTx(ctx, "DeleteDebt", func(tx repository.LedgerTx) error {
		debt, err := tx.LockDebt(ctx, id)
		if err != nil {
			return err
		}
		if err := scope.authorizeWrite(debt); err != nil {
			return err
		}
		n, err := tx.CountPayments(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("debt %s has %d payments: %w", id, n, domain.ErrHasPayments)
		}
		return tx.DeleteDebt(ctx, id)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.DeleteDebt", err, "debtID", id)
		return err
	}

	logger.ExitMethod("ledgerService.DeleteDebt", "debtID", id)
	return nil
}

func (s *ledgerService) AddPayment(ctx context.Context, actor domain.ActorContext, debtID string, in domain.PaymentInput) (*domain.Payment, error) {
	logger.EnterMethod("ledgerService.AddPayment", "actorID", actor.ActorID, "debtID", debtID, "amount", in.Amount)

	scope, err := newAccessScope(actor)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.AddPayment", err, "debtID", debtID)
		return nil, err
	}
	amount, err := in.Validate()
	if err == nil {
		err = checkDebtID(debtID)
	}
	if err != nil {
		logger.ExitMethodWithError("ledgerService.AddPayment", err, "debtID", debtID)
		return nil, err
	}

	var created *domain.Payment
	var status domain.Status
	err = s.runTx(ctx, "AddPayment", func(tx repository.LedgerTx) error {
		debt, err := tx.LockDebt(ctx, debtID)
		if err != nil {
			return err
		}
		if err := scope.authorizeWrite(debt); err != nil {
			return err
		}
		now := s.now()
		p := &domain.Payment{
			ID:         s.newID(),
			DebtID:     debt.ID,
			PayerName:  in.PayerName,
			Amount:     amount,
			Date:       in.Date,
			Remark:     in.Remark,
			RecordedBy: actor.ActorID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		if _, err := s.rederive(ctx, tx, debt); err != nil {
			return err
		}
		created, status = p, debt.Status
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.AddPayment", err, "debtID", debtID)
		return nil, err
	}

	logger.ExitMethod("ledgerService.AddPayment", "debtID", debtID, "paymentID", created.ID, "status", status.String())
	return created, nil
}

func (s *ledgerService) UpdatePayment(ctx context.Context, actor domain.ActorContext, paymentID string, in domain.PaymentInput) (*domain.Payment, error) {
	logger.EnterMethod("ledgerService.UpdatePayment", "actorID", actor.ActorID, "paymentID", paymentID)

	scope, err := newAccessScope(actor)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.UpdatePayment", err, "paymentID", paymentID)
		return nil, err
	}
	amount, err := in.Validate()
	if err != nil {
		logger.ExitMethodWithError("ledgerService.UpdatePayment", err, "paymentID", paymentID)
		return nil, err
	}

	var updated *domain.Payment
	err = s.mutatePayment(ctx, scope, "UpdatePayment", paymentID, func(tx repository.LedgerTx, p *domain.Payment) error {
		p.PayerName = in.PayerName
		p.Amount = amount
		p.Date = in.Date
		p.Remark = in.Remark
		p.UpdatedAt = s.now()
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.UpdatePayment", err, "paymentID", paymentID)
		return nil, err
	}

	logger.ExitMethod("ledgerService.UpdatePayment", "paymentID", paymentID, "debtID", updated.DebtID)
	return updated, nil
}

func (s *ledgerService) RemovePayment(ctx context.Context, actor domain.ActorContext, paymentID string) error {
	logger.EnterMethod("ledgerService.RemovePayment", "actorID", actor.ActorID, "paymentID", paymentID)

	scope, err := newAccessScope(actor)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.RemovePayment", err, "paymentID", paymentID)
		return err
	}

	err = s.mutatePayment(ctx, scope, "RemovePayment", paymentID, func(tx repository.LedgerTx, p *domain.Payment) error {
		return tx.DeletePayment(ctx, p.ID)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.RemovePayment", err, "paymentID", paymentID)
		return err
	}

	logger.ExitMethod("ledgerService.RemovePayment", "paymentID", paymentID)
	return nil
}

// mutatePayment locks the payment's debt, then the payment, applies change
// and re-derives the debt status in the same unit.
func (s *ledgerService) mutatePayment(ctx context.Context, scope accessScope, op, paymentID string, change func(tx repository.LedgerTx, p *domain.Payment) error) error {
	if _, err := uuid.Parse(paymentID); err != nil {
		return fmt.Errorf("payment %q: %w", paymentID, domain.ErrPaymentNotFound)
	}
	lookupCtx, cancel := s.withTimeout(ctx)
	existing, err := s.repo.GetPayment(lookupCtx, paymentID)
	cancel()
	if err != nil {
		return err
	}

	return s.runTx(ctx, op, func(tx repository.LedgerTx) error {
		debt, err := tx.LockDebt(ctx, existing.DebtID)
		if errors.Is(err, domain.ErrDebtNotFound) {
			return fmt.Errorf("payment %s: %w", paymentID, domain.ErrPaymentNotFound)
		}
		if err != nil {
			return err
		}
		if err := scope.authorizeWrite(debt); err != nil {
			return err
		}
		p, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.DebtID != debt.ID {
			return fmt.Errorf("payment %s: %w", paymentID, domain.ErrPaymentNotFound)
		}
		if err := change(tx, p); err != nil {
			return err
		}
		_, err = s.rederive(ctx, tx, debt)
		return err
	})
}

// checkDebtID rejects identifiers the allocator could never have issued.
func checkDebtID(id string) error {
	if _, err := domain.ParseDebtID(id); err != nil {
		return fmt.Errorf("debt %q: %w", id, domain.ErrDebtNotFound)
	}
	return nil
}

func (s *ledgerService) ListPayments(ctx context.Context, actor domain.ActorContext, debtID string) ([]domain.Payment, error) {
	debt, err := s.GetDebt(ctx, actor, debtID)
	if err != nil {
		return nil, err
	}
	return debt.Payments, nil
}

func (s *ledgerService) Summarize(ctx context.Context, actor domain.ActorContext, filter domain.DebtFilter) (*domain.Summary, error) {
	debts, err := s.QueryDebts(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	summary := domain.Summarize(debts)
	return &summary, nil
}

func (s *ledgerService) ReconcileStatuses(ctx context.Context, actor domain.ActorContext) (int, error) {
	logger.EnterMethod("ledgerService.ReconcileStatuses", "actorID", actor.ActorID)

	scope, err := newAccessScope(actor)
	if err == nil {
		err = scope.requireAdmin()
	}
	if err != nil {
		logger.ExitMethodWithError("ledgerService.ReconcileStatuses", err, "actorID", actor.ActorID)
		return 0, err
	}

	ids, err := s.repo.ListDebtIDs(ctx)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.ReconcileStatuses", err)
		return 0, err
	}

	repaired := 0
	for _, id := range ids {
		var changed bool
		err := s.runTx(ctx, "ReconcileStatuses", func(tx repository.LedgerTx) error {
			debt, err := tx.LockDebt(ctx, id)
			if err != nil {
				return err
			}
			before := debt.Status
			changed, err = s.rederive(ctx, tx, debt)
			if changed {
				logger.Warn("Debt status drift repaired", "debtID", id, "from", before.String(), "to", debt.Status.String())
			}
			return err
		})
		if errors.Is(err, domain.ErrDebtNotFound) {
			continue
		}
		if err != nil {
			logger.ExitMethodWithError("ledgerService.ReconcileStatuses", err, "debtID", id, "repaired", repaired)
			return repaired, err
		}
		if changed {
			repaired++
		}
	}

	logger.ExitMethod("ledgerService.ReconcileStatuses", "checked", len(ids), "repaired", repaired)
	return repaired, nil
}

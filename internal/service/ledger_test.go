package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/repository"
	"iou-ledger/internal/repository/sqlite"
	"iou-ledger/internal/service"
)

var (
	admin   = domain.ActorContext{ActorID: "admin-1", Role: domain.RoleAdmin}
	manager = domain.ActorContext{ActorID: "mgr-1", Role: domain.RoleManager}
	alice   = domain.ActorContext{ActorID: "alice", Role: domain.RoleUser}
	bob     = domain.ActorContext{ActorID: "bob", Role: domain.RoleUser}
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newLedger(t *testing.T) (service.LedgerService, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return service.NewLedgerService(store, service.LedgerOptions{MaxRetries: 3}), store
}

func manualDebt(owner string, amounts ...string) domain.NewDebt {
	lines := make([]domain.LineInput, 0, len(amounts))
	for i, a := range amounts {
		lines = append(lines, domain.LineInput{Client: fmt.Sprintf("client-%d", i+1), Amount: a})
	}
	return domain.NewDebt{OwnerCode: owner, IssueDate: "240101", SourceType: domain.SourceHand, Lines: lines}
}

func payment(amount string) domain.PaymentInput {
	return domain.PaymentInput{PayerName: "X", Amount: amount, Date: "240105"}
}

func TestLedgerService_PaymentLifecycle(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	debt, err := ledger.CreateDebt(ctx, alice, manualDebt("ABC", "100.00"))
	require.NoError(t, err)
	assert.Equal(t, "ABC240101H01", debt.ID)
	assert.Equal(t, "alice", debt.OwnerID)
	assert.True(t, debt.TotalAmount.Equal(dec("100.00")))
	assert.Equal(t, domain.StatusUnpaid, debt.Status)

	_, err = ledger.AddPayment(ctx, alice, debt.ID, payment("40.00"))
	require.NoError(t, err)
	got, err := ledger.GetDebt(ctx, alice, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartiallyPaid, got.Status)
	assert.True(t, got.Rest().Equal(dec("60.00")))

	second, err := ledger.AddPayment(ctx, alice, debt.ID, payment("60.00"))
	require.NoError(t, err)
	got, err = ledger.GetDebt(ctx, alice, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.True(t, got.Rest().IsZero())
	assert.Equal(t, "alice", second.RecordedBy)

	_, err = ledger.UpdatePayment(ctx, alice, second.ID, payment("80.00"))
	require.NoError(t, err)
	got, err = ledger.GetDebt(ctx, alice, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverpaid, got.Status)

	require.NoError(t, ledger.RemovePayment(ctx, alice, second.ID))
	got, err = ledger.GetDebt(ctx, alice, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartiallyPaid, got.Status)
	assert.Len(t, got.Payments, 1)

	err = ledger.RemovePayment(ctx, alice, second.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestLedgerService_CreateDebt(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	t.Run("ExactDecimalSum", func(t *testing.T) {
		debt, err := ledger.CreateDebt(ctx, alice, manualDebt("ABC", "0.10", "0.20", "0.30"))
		require.NoError(t, err)
		assert.Equal(t, "0.60", domain.FormatAmount(debt.TotalAmount))
		assert.Len(t, debt.Lines, 3)
	})

	t.Run("NegativeInitial", func(t *testing.T) {
		debt, err := ledger.CreateDebt(ctx, alice, manualDebt("ABC", "-50.00"))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusNegativeInitial, debt.Status)
		assert.Empty(t, debt.Payments)
	})

	t.Run("ZeroTotalIsUnpaid", func(t *testing.T) {
		debt, err := ledger.CreateDebt(ctx, alice, manualDebt("ABC", "0"))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusUnpaid, debt.Status)
	})

	t.Run("SequencesIncrement", func(t *testing.T) {
		first, err := ledger.CreateDebt(ctx, alice, manualDebt("xy", "1"))
		require.NoError(t, err)
		second, err := ledger.CreateDebt(ctx, alice, manualDebt("XY", "1"))
		require.NoError(t, err)
		assert.Equal(t, "XYA240101H01", first.ID)
		assert.Equal(t, "XYA240101H02", second.ID)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		_, err := ledger.CreateDebt(ctx, alice, manualDebt("ABC", "12.x"))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("UserCannotCreateForOthers", func(t *testing.T) {
		in := manualDebt("ABC", "1")
		in.OwnerID = "bob"
		_, err := ledger.CreateDebt(ctx, alice, in)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		debt, err := ledger.CreateDebt(ctx, manager, in)
		require.NoError(t, err)
		assert.Equal(t, "bob", debt.OwnerID)
	})

	t.Run("NonManualSourceIsGuarded", func(t *testing.T) {
		in := manualDebt("QQQ", "5")
		in.SourceType = domain.SourceSpreadsheet
		debt, err := ledger.CreateDebt(ctx, alice, in)
		require.NoError(t, err)
		assert.Equal(t, "QQQ240101E01", debt.ID)

		_, err = ledger.CreateDebt(ctx, alice, in)
		assert.ErrorIs(t, err, domain.ErrDuplicateBatch)
	})
}

func TestLedgerService_CapacityExceeded(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	for i := 1; i <= domain.MaxSequence; i++ {
		_, err := ledger.CreateDebt(ctx, admin, manualDebt("CAP", "1"))
		require.NoError(t, err, "debt %d", i)
	}
	_, err := ledger.CreateDebt(ctx, admin, manualDebt("CAP", "1"))
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	// Deleting a debt releases its sequence.
	require.NoError(t, ledger.DeleteDebt(ctx, admin, "CAP240101H42"))
	debt, err := ledger.CreateDebt(ctx, admin, manualDebt("CAP", "1"))
	require.NoError(t, err)
	assert.Equal(t, "CAP240101H42", debt.ID)
}

func sampleBatch() domain.Batch {
	return domain.Batch{
		OwnerCode:  "ZZZ",
		Date:       "240301",
		SourceType: domain.SourceSpreadsheet,
		Groups: []domain.BatchGroup{
			{Sequence: 3, Lines: []domain.LineInput{{Client: "C", Amount: "30"}}},
			{Sequence: 1, Lines: []domain.LineInput{{Client: "A", Amount: "10"}, {Client: "B", Amount: "5.50"}}},
		},
	}
}

func TestLedgerService_ImportBatch(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	debts, err := ledger.ImportBatch(ctx, alice, sampleBatch())
	require.NoError(t, err)
	require.Len(t, debts, 2)
	assert.Equal(t, "ZZZ240301E01", debts[0].ID)
	assert.True(t, debts[0].TotalAmount.Equal(dec("15.50")))
	assert.Equal(t, "ZZZ240301E03", debts[1].ID)

	_, err = ledger.AddPayment(ctx, alice, debts[0].ID, payment("5"))
	require.NoError(t, err)

	before, err := ledger.QueryDebts(ctx, admin, domain.DebtFilter{})
	require.NoError(t, err)

	_, err = ledger.ImportBatch(ctx, alice, sampleBatch())
	assert.ErrorIs(t, err, domain.ErrDuplicateBatch)

	after, err := ledger.QueryDebts(ctx, admin, domain.DebtFilter{})
	require.NoError(t, err)
	assert.Equal(t, counts(before), counts(after))
}

func TestLedgerService_ImportBatchIsAllOrNothing(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	batch := sampleBatch()
	batch.Groups = append(batch.Groups, domain.BatchGroup{Sequence: 7, Lines: []domain.LineInput{{Client: "D", Amount: "oops"}}})

	_, err := ledger.ImportBatch(ctx, alice, batch)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	debts, err := ledger.QueryDebts(ctx, admin, domain.DebtFilter{})
	require.NoError(t, err)
	assert.Empty(t, debts)

	_, err = ledger.ImportBatch(ctx, alice, sampleBatch())
	assert.NoError(t, err)
}

func counts(debts []domain.Debt) [3]int {
	var c [3]int
	for _, d := range debts {
		c[0]++
		c[1] += len(d.Lines)
		c[2] += len(d.Payments)
	}
	return c
}

func TestLedgerService_ConcurrentPayments(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	debt, err := ledger.CreateDebt(ctx, alice, manualDebt("CON", "100"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, amount := range []string{"30.00", "70.00"} {
		wg.Add(1)
		go func(amount string) {
			defer wg.Done()
			_, err := ledger.AddPayment(ctx, alice, debt.ID, payment(amount))
			errs <- err
		}(amount)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := ledger.GetDebt(ctx, alice, debt.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid().Equal(dec("100.00")))
	assert.Equal(t, domain.StatusPaid, got.Status)
}

func TestLedgerService_ManyConcurrentPaymentsAcrossDebts(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	ids := make([]string, 3)
	for i := range ids {
		debt, err := ledger.CreateDebt(ctx, admin, manualDebt("PAR", "50"))
		require.NoError(t, err)
		ids[i] = debt.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := ledger.AddPayment(ctx, admin, id, payment("10"))
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	debts, err := ledger.QueryDebts(ctx, admin, domain.DebtFilter{})
	require.NoError(t, err)
	for _, d := range debts {
		assert.Equal(t, domain.StatusPaid, d.Status, d.ID)
		assert.Len(t, d.Payments, 5)
	}
}

func TestLedgerService_AccessScope(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	debt, err := ledger.CreateDebt(ctx, bob, manualDebt("BOB", "100"))
	require.NoError(t, err)
	bobPayment, err := ledger.AddPayment(ctx, bob, debt.ID, payment("10"))
	require.NoError(t, err)

	t.Run("UserReadsOnlyOwnRows", func(t *testing.T) {
		debts, err := ledger.QueryDebts(ctx, alice, domain.DebtFilter{})
		require.NoError(t, err)
		assert.Empty(t, debts)

		_, err = ledger.GetDebt(ctx, alice, debt.ID)
		assert.ErrorIs(t, err, domain.ErrDebtNotFound)

		_, err = ledger.ListPayments(ctx, alice, debt.ID)
		assert.ErrorIs(t, err, domain.ErrDebtNotFound)
	})

	t.Run("UserWritesAreForbidden", func(t *testing.T) {
		_, err := ledger.AddPayment(ctx, alice, debt.ID, payment("10"))
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = ledger.UpdatePayment(ctx, alice, bobPayment.ID, payment("20"))
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.ErrorIs(t, ledger.RemovePayment(ctx, alice, bobPayment.ID), domain.ErrForbidden)
		assert.ErrorIs(t, ledger.DeleteDebt(ctx, alice, debt.ID), domain.ErrForbidden)
	})

	t.Run("AdminSeesAndMutatesAll", func(t *testing.T) {
		debts, err := ledger.QueryDebts(ctx, admin, domain.DebtFilter{})
		require.NoError(t, err)
		assert.Len(t, debts, 1)

		_, err = ledger.AddPayment(ctx, admin, debt.ID, payment("90"))
		require.NoError(t, err)
		payments, err := ledger.ListPayments(ctx, manager, debt.ID)
		require.NoError(t, err)
		assert.Len(t, payments, 2)
	})

	t.Run("AnonymousActorIsRejected", func(t *testing.T) {
		_, err := ledger.QueryDebts(ctx, domain.ActorContext{Role: domain.RoleAdmin}, domain.DebtFilter{})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = ledger.QueryDebts(ctx, domain.ActorContext{ActorID: "x", Role: "root"}, domain.DebtFilter{})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestLedgerService_DeleteDebt(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	debt, err := ledger.CreateDebt(ctx, alice, manualDebt("DEL", "10", "20"))
	require.NoError(t, err)
	p, err := ledger.AddPayment(ctx, alice, debt.ID, payment("5"))
	require.NoError(t, err)

	assert.ErrorIs(t, ledger.DeleteDebt(ctx, alice, debt.ID), domain.ErrHasPayments)

	require.NoError(t, ledger.RemovePayment(ctx, alice, p.ID))
	require.NoError(t, ledger.DeleteDebt(ctx, alice, debt.ID))

	_, err = ledger.GetDebt(ctx, alice, debt.ID)
	assert.ErrorIs(t, err, domain.ErrDebtNotFound)
	assert.ErrorIs(t, ledger.DeleteDebt(ctx, alice, debt.ID), domain.ErrDebtNotFound)
}

func TestLedgerService_AddPaymentValidation(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	debt, err := ledger.CreateDebt(ctx, alice, manualDebt("VAL", "10"))
	require.NoError(t, err)

	for _, amount := range []string{"0", "-1", "abc", "1.001"} {
		_, err := ledger.AddPayment(ctx, alice, debt.ID, payment(amount))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, amount)
	}
	_, err = ledger.AddPayment(ctx, alice, "VAL240101H09", payment("1"))
	assert.ErrorIs(t, err, domain.ErrDebtNotFound)
}

func TestLedgerService_QueryAndSummarize(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	a, err := ledger.CreateDebt(ctx, admin, domain.NewDebt{
		OwnerCode: "QRY", IssueDate: "240110",
		Lines: []domain.LineInput{{Client: "Acme Travel", Amount: "100", TicketNumber: "TK-1"}},
	})
	require.NoError(t, err)
	_, err = ledger.CreateDebt(ctx, admin, domain.NewDebt{
		OwnerCode: "QRY", IssueDate: "240120",
		Lines: []domain.LineInput{{Client: "Globex", Amount: "250", Remark: "urgent"}},
	})
	require.NoError(t, err)
	_, err = ledger.AddPayment(ctx, admin, a.ID, payment("95"))
	require.NoError(t, err)

	rest, err := domain.NewAmountRange("0", "10")
	require.NoError(t, err)
	total, err := domain.NewAmountRange("240", "10")
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter domain.DebtFilter
		want   []string
	}{
		{"all", domain.DebtFilter{}, []string{"QRY240110H01", "QRY240120H01"}},
		{"rest near zero", domain.DebtFilter{Rest: rest}, []string{"QRY240110H01"}},
		{"total around 240", domain.DebtFilter{Total: total}, []string{"QRY240120H01"}},
		{"ticket", domain.DebtFilter{TicketNumber: "TK"}, []string{"QRY240110H01"}},
		{"remark and date", domain.DebtFilter{Remark: "urg", DateFrom: "240115"}, []string{"QRY240120H01"}},
		{"status set", domain.DebtFilter{Statuses: []domain.Status{domain.StatusPartiallyPaid}}, []string{"QRY240110H01"}},
		{"client case sensitive", domain.DebtFilter{Client: "acme"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debts, err := ledger.QueryDebts(ctx, admin, tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, d := range debts {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err = ledger.QueryDebts(ctx, admin, domain.DebtFilter{DateFrom: "240201", DateTo: "240101"})
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)

	summary, err := ledger.Summarize(ctx, admin, domain.DebtFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.True(t, summary.Total.Equal(dec("350")))
	assert.True(t, summary.Paid.Equal(dec("95")))
	assert.True(t, summary.Rest.Equal(dec("255")))
	assert.Len(t, summary.ByStatus, 2)
}

func TestLedgerService_ReconcileStatuses(t *testing.T) {
	ledger, store := newLedger(t)
	ctx := context.Background()

	debt, err := ledger.CreateDebt(ctx, admin, manualDebt("REC", "100"))
	require.NoError(t, err)
	_, err = ledger.AddPayment(ctx, admin, debt.ID, payment("100"))
	require.NoError(t, err)

	// Simulate drift written behind the service's back.
	err = store.WithinTx(ctx, func(tx repository.LedgerTx) error {
		return tx.SetDebtStatus(ctx, debt.ID, domain.StatusUnpaid)
	})
	require.NoError(t, err)

	_, err = ledger.ReconcileStatuses(ctx, manager)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	repaired, err := ledger.ReconcileStatuses(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	got, err := ledger.GetDebt(ctx, admin, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)

	repaired, err = ledger.ReconcileStatuses(ctx, admin)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

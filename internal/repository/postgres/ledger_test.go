package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/repository"
	"iou-ledger/internal/repository/postgres"
)

var debtCols = []string{"id", "owner_code", "owner_id", "issue_date", "source_type", "total_amount", "status", "created_at", "updated_at"}

func newMock(t *testing.T) (repository.LedgerRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return postgres.NewLedgerRepository(db), mock
}

func TestLedgerRepository_GetDebt(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM debts d WHERE d.id = $1")).
			WithArgs("AAA240115H01").
			WillReturnRows(sqlmock.NewRows(debtCols).
				AddRow("AAA240115H01", "AAA", "u-1", "240115", "H", "150.00", int64(1), now, now))
		mock.ExpectQuery(regexp.QuoteMeta("FROM debt_lines WHERE debt_id = ANY($1)")).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "debt_id", "position", "client", "amount", "flight_segment", "ticket_number", "remark"}).
				AddRow(int64(1), "AAA240115H01", 1, "Alice", "100.00", "LHR-JFK", "T1", "").
				AddRow(int64(2), "AAA240115H01", 2, "Bob", "50.00", "", "", "late"))
		mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE debt_id = ANY($1)")).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "debt_id", "payer_name", "amount", "pay_date", "remark", "recorded_by", "created_at", "updated_at"}).
				AddRow("p-1", "AAA240115H01", "Alice", "40.00", "240120", "", "u-1", now, now))
		mock.ExpectCommit()

		debt, err := repo.GetDebt(ctx, "AAA240115H01")
		require.NoError(t, err)
		assert.Equal(t, domain.SourceHand, debt.SourceType)
		assert.Equal(t, domain.StatusPartiallyPaid, debt.Status)
		assert.Len(t, debt.Lines, 2)
		assert.Len(t, debt.Payments, 1)
		assert.True(t, debt.Rest().Equal(decimal.RequireFromString("110")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM debts d WHERE d.id = $1")).
			WithArgs("AAA240115H02").
			WillReturnRows(sqlmock.NewRows(debtCols))
		mock.ExpectRollback()

		_, err := repo.GetDebt(ctx, "AAA240115H02")
		assert.ErrorIs(t, err, domain.ErrDebtNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_QueryDebts(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	q := repository.DebtQuery{
		OwnerID: "u-7",
		Filter: domain.DebtFilter{
			DateFrom: "240101",
			DateTo:   "240131",
			Client:   "Ali",
			Statuses: []domain.Status{domain.StatusUnpaid, domain.StatusPartiallyPaid},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`d\.owner_id = \$1 AND d\.issue_date >= \$2 AND d\.issue_date <= \$3 AND d\.status = ANY\(\$4\) AND EXISTS .*strpos\(l\.client, \$5\).*ORDER BY d\.issue_date ASC, d\.id ASC`).
		WithArgs("u-7", "240101", "240131", sqlmock.AnyArg(), "Ali").
		WillReturnRows(sqlmock.NewRows(debtCols))
	mock.ExpectCommit()

	debts, err := repo.QueryDebts(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, debts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsOnSuccess", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
			WithArgs("AAA240115E").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM debts WHERE batch_key = $1")).
			WithArgs("AAA240115E").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("AAA240115E01").AddRow("AAA240115E03"))
		mock.ExpectCommit()

		var seqs []int
		err := repo.WithinTx(ctx, func(tx repository.LedgerTx) error {
			if err := tx.LockBatchKey(ctx, "AAA240115E"); err != nil {
				return err
			}
			var err error
			seqs, err = tx.UsedSequences(ctx, "AAA240115E")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3}, seqs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollsBackOnError", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs("AAA240115H01").
			WillReturnRows(sqlmock.NewRows(debtCols))
		mock.ExpectRollback()

		err := repo.WithinTx(ctx, func(tx repository.LedgerTx) error {
			_, err := tx.LockDebt(ctx, "AAA240115H01")
			return err
		})
		assert.ErrorIs(t, err, domain.ErrDebtNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TranslatesSerializationFailure", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE debts SET status = $1")).
			WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})
		mock.ExpectRollback()

		err := repo.WithinTx(ctx, func(tx repository.LedgerTx) error {
			return tx.SetDebtStatus(ctx, "AAA240115H01", domain.StatusPaid)
		})
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)
		assert.True(t, domain.IsRetryable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TranslatesDuplicateDebt", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO debts").
			WillReturnError(&pq.Error{Code: "23505", Table: "debts"})
		mock.ExpectRollback()

		err := repo.WithinTx(ctx, func(tx repository.LedgerTx) error {
			return tx.InsertDebt(ctx, &domain.Debt{ID: "AAA240115E01", OwnerCode: "AAA", IssueDate: "240115", SourceType: "E"})
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateBatch)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FunctionErrorIsReturnedUnchanged", func(t *testing.T) {
		repo, mock := newMock(t)
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repo.WithinTx(ctx, func(tx repository.LedgerTx) error { return boom })
		assert.Equal(t, boom, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerTx_InsertDebt(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	debt := &domain.Debt{
		ID: "AAA240115H01", OwnerCode: "AAA", OwnerID: "u-1", IssueDate: "240115",
		SourceType: domain.SourceHand, TotalAmount: decimal.RequireFromString("100"),
		Lines: []domain.DebtLine{{Position: 1, Client: "Alice", Amount: decimal.RequireFromString("100")}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO debts").
		WithArgs("AAA240115H01", "AAA240115H", "AAA", "u-1", "240115", "H", sqlmock.AnyArg(), 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO debt_lines").
		WithArgs("AAA240115H01", 1, "Alice", sqlmock.AnyArg(), "", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	err := repo.WithinTx(ctx, func(tx repository.LedgerTx) error {
		return tx.InsertDebt(ctx, debt)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), debt.Lines[0].ID)
	assert.Equal(t, "AAA240115H01", debt.Lines[0].DebtID)
	assert.False(t, debt.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_SumPayments(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments")).
		WithArgs("AAA240115H01").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("100.00"))
	mock.ExpectCommit()

	var sum decimal.Decimal
	err := repo.WithinTx(ctx, func(tx repository.LedgerTx) error {
		var err error
		sum, err = tx.SumPayments(ctx, "AAA240115H01")
		return err
	})
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

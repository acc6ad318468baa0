package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/logger"
)

// ledgerTx implements repository.LedgerTx on a *sql.Tx. Row locks are taken
// with SELECT ... FOR UPDATE, debt before payment.
type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) LockBatchKey(ctx context.Context, batchKey string) error {
	logger.DatabaseCall("LockBatchKey", "pg_advisory_xact_lock", "batchKey", batchKey)
	_, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, batchKey)
	return translateError("lock batch key", err)
}

func (t *ledgerTx) BatchKeyExists(ctx context.Context, batchKey string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM debts WHERE batch_key = $1)`, batchKey).Scan(&exists)
	return exists, translateError("check batch key", err)
}

func (t *ledgerTx) UsedSequences(ctx context.Context, batchKey string) ([]int, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id FROM debts WHERE batch_key = $1 ORDER BY id`, batchKey)
	if err != nil {
		return nil, translateError("select used sequences", err)
	}
	defer rows.Close()

	seqs := []int{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translateError("scan debt id", err)
		}
		seq, err := strconv.Atoi(id[len(id)-2:])
		if err != nil {
			return nil, fmt.Errorf("debt id %q has a malformed sequence: %w", id, err)
		}
		seqs = append(seqs, seq)
	}
	return seqs, translateError("iterate used sequences", rows.Err())
}

func (t *ledgerTx) LockDebt(ctx context.Context, id string) (*domain.Debt, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts d WHERE d.id = $1 FOR UPDATE`, id)
	d, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("debt %s: %w", id, domain.ErrDebtNotFound)
	}
	if err != nil {
		return nil, translateError("lock debt", err)
	}
	return d, nil
}

func (t *ledgerTx) InsertDebt(ctx context.Context, debt *domain.Debt) error {
	logger.EnterMethod("ledgerTx.InsertDebt", "debtID", debt.ID, "lines", len(debt.Lines))

	now := time.Now().UTC()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO debts (id, batch_key, owner_code, owner_id, issue_date, source_type, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		debt.ID, debt.BatchKey(), debt.OwnerCode, debt.OwnerID, debt.IssueDate, string(debt.SourceType),
		debt.TotalAmount, int(debt.Status), now, now,
	)
	if err != nil {
		err = translateError("insert debt", err)
		logger.ExitMethodWithError("ledgerTx.InsertDebt", err, "debtID", debt.ID)
		return err
	}
	debt.CreatedAt, debt.UpdatedAt = now, now

	for i := range debt.Lines {
		l := &debt.Lines[i]
		l.DebtID = debt.ID
		err := t.tx.QueryRowContext(ctx, `
			INSERT INTO debt_lines (debt_id, position, client, amount, flight_segment, ticket_number, remark)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			l.DebtID, l.Position, l.Client, l.Amount, l.FlightSegment, l.TicketNumber, l.Remark,
		).Scan(&l.ID)
		if err != nil {
			err = translateError("insert debt line", err)
			logger.ExitMethodWithError("ledgerTx.InsertDebt", err, "debtID", debt.ID, "position", l.Position)
			return err
		}
	}

	logger.ExitMethod("ledgerTx.InsertDebt", "debtID", debt.ID)
	return nil
}

func (t *ledgerTx) DeleteDebt(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM debt_lines WHERE debt_id = $1`, id); err != nil {
		return translateError("delete debt lines", err)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM debts WHERE id = $1`, id)
	if err != nil {
		return translateError("delete debt", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("debt %s: %w", id, domain.ErrDebtNotFound)
	}
	return nil
}

func (t *ledgerTx) SetDebtStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE debts SET status = $1, updated_at = $2 WHERE id = $3`, int(status), time.Now().UTC(), id)
	return translateError("update debt status", err)
}

func (t *ledgerTx) CountPayments(ctx context.Context, debtID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT count(*) FROM payments WHERE debt_id = $1`, debtID).Scan(&n)
	return n, translateError("count payments", err)
}

func (t *ledgerTx) SumPayments(ctx context.Context, debtID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE debt_id = $1`, debtID).Scan(&sum)
	if err != nil {
		return decimal.Zero, translateError("sum payments", err)
	}
	return sum, nil
}

func (t *ledgerTx) GetPaymentForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, domain.ErrPaymentNotFound)
	}
	if err != nil {
		return nil, translateError("lock payment", err)
	}
	return p, nil
}

func (t *ledgerTx) InsertPayment(ctx context.Context, p *domain.Payment) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO payments (id, debt_id, payer_name, amount, pay_date, remark, recorded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.DebtID, p.PayerName, p.Amount, p.Date, p.Remark, p.RecordedBy, p.CreatedAt, p.UpdatedAt,
	)
	return translateError("insert payment", err)
}

func (t *ledgerTx) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE payments SET payer_name = $1, amount = $2, pay_date = $3, remark = $4, updated_at = $5
		WHERE id = $6`,
		p.PayerName, p.Amount, p.Date, p.Remark, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return translateError("update payment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("payment %s: %w", p.ID, domain.ErrPaymentNotFound)
	}
	return nil
}

func (t *ledgerTx) DeletePayment(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return translateError("delete payment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("payment %s: %w", id, domain.ErrPaymentNotFound)
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"iou-ledger/internal/domain"
)

// ledgerTx runs on an immediate transaction that already holds the database
// write lock, so the Lock* methods only need to read.
type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) LockBatchKey(ctx context.Context, batchKey string) error {
	return nil
}

func (t *ledgerTx) BatchKeyExists(ctx context.Context, batchKey string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM debts WHERE batch_key = ?)`, batchKey).Scan(&exists)
	return exists, translateError("check batch key", err)
}

func (t *ledgerTx) UsedSequences(ctx context.Context, batchKey string) ([]int, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id FROM debts WHERE batch_key = ? ORDER BY id`, batchKey)
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
	d, err := scanDebt(t.tx.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts d WHERE d.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("debt %s: %w", id, domain.ErrDebtNotFound)
	}
	if err != nil {
		return nil, translateError("lock debt", err)
	}
	return d, nil
}

func (t *ledgerTx) InsertDebt(ctx context.Context, debt *domain.Debt) error {
	now := time.Now().UTC()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO debts (id, batch_key, owner_code, owner_id, issue_date, source_type, total_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID, debt.BatchKey(), debt.OwnerCode, debt.OwnerID, debt.IssueDate, string(debt.SourceType),
		domain.FormatAmount(debt.TotalAmount), int(debt.Status), now, now,
	)
	if err != nil {
		return translateError("insert debt", err)
	}
	debt.CreatedAt, debt.UpdatedAt = now, now

	for i := range debt.Lines {
		l := &debt.Lines[i]
		l.DebtID = debt.ID
		res, err := t.tx.ExecContext(ctx, `
			INSERT INTO debt_lines (debt_id, position, client, amount, flight_segment, ticket_number, remark)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.DebtID, l.Position, l.Client, domain.FormatAmount(l.Amount), l.FlightSegment, l.TicketNumber, l.Remark,
		)
		if err != nil {
			return translateError("insert debt line", err)
		}
		if l.ID, err = res.LastInsertId(); err != nil {
			return translateError("read line id", err)
		}
	}
	return nil
}

func (t *ledgerTx) DeleteDebt(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id)
	if err != nil {
		return translateError("delete debt", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("debt %s: %w", id, domain.ErrDebtNotFound)
	}
	return nil
}

func (t *ledgerTx) SetDebtStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE debts SET status = ?, updated_at = ? WHERE id = ?`, int(status), time.Now().UTC(), id)
	return translateError("update debt status", err)
}

func (t *ledgerTx) CountPayments(ctx context.Context, debtID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT count(*) FROM payments WHERE debt_id = ?`, debtID).Scan(&n)
	return n, translateError("count payments", err)
}

func (t *ledgerTx) SumPayments(ctx context.Context, debtID string) (decimal.Decimal, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT amount FROM payments WHERE debt_id = ?`, debtID)
	if err != nil {
		return decimal.Zero, translateError("sum payments", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, translateError("scan payment amount", err)
		}
		sum = sum.Add(amount)
	}
	return sum, translateError("iterate payment amounts", rows.Err())
}

func (t *ledgerTx) GetPaymentForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := scanPayment(t.tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, domain.ErrPaymentNotFound)
	}
	if err != nil {
		return nil, translateError("select payment", err)
	}
	return p, nil
}

func (t *ledgerTx) InsertPayment(ctx context.Context, p *domain.Payment) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO payments (id, debt_id, payer_name, amount, pay_date, remark, recorded_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.DebtID, p.PayerName, domain.FormatAmount(p.Amount), p.Date, p.Remark, p.RecordedBy, p.CreatedAt, p.UpdatedAt,
	)
	return translateError("insert payment", err)
}

func (t *ledgerTx) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE payments SET payer_name = ?, amount = ?, pay_date = ?, remark = ?, updated_at = ?
		WHERE id = ?`,
		p.PayerName, domain.FormatAmount(p.Amount), p.Date, p.Remark, p.UpdatedAt, p.ID,
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
	res, err := t.tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return translateError("delete payment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("payment %s: %w", id, domain.ErrPaymentNotFound)
	}
	return nil
}

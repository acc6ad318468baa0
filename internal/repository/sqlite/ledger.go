package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"iou-ledger/internal/domain"
	"iou-ledger/internal/logger"
	"iou-ledger/internal/repository"
)

const debtColumns = `d.id, d.owner_code, d.owner_id, d.issue_date, d.source_type, d.total_amount, d.status, d.created_at, d.updated_at`

const lineColumns = `id, debt_id, position, client, amount, flight_segment, ticket_number, remark`

const paymentColumns = `id, debt_id, payer_name, amount, pay_date, remark, recorded_by, created_at, updated_at`

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Migrate(ctx context.Context) error {
	logger.DatabaseCall("Migrate", "schema")
	_, err := r.db.ExecContext(ctx, schema)
	logger.DatabaseResult("Migrate", 0, err)
	return translateError("migrate schema", err)
}

// WithinTx opens an immediate transaction: the write lock is taken up front,
// so every unit of work runs serialized against other writers.
func (r *ledgerRepository) WithinTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&ledgerTx{tx: sqlTx}); err != nil {
		return err
	}
	return translateError("commit transaction", sqlTx.Commit())
}

func (r *ledgerRepository) readSnapshot(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError("begin read transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return translateError("commit read transaction", sqlTx.Commit())
}

func (r *ledgerRepository) GetDebt(ctx context.Context, id string) (*domain.Debt, error) {
	var debt *domain.Debt
	err := r.readSnapshot(ctx, func(tx *sql.Tx) error {
		d, err := scanDebt(tx.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts d WHERE d.id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("debt %s: %w", id, domain.ErrDebtNotFound)
		}
		if err != nil {
			return translateError("select debt", err)
		}
		debts := []domain.Debt{*d}
		if err := loadChildren(ctx, tx, debts); err != nil {
			return err
		}
		debt = &debts[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return debt, nil
}

func (r *ledgerRepository) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, domain.ErrPaymentNotFound)
	}
	if err != nil {
		return nil, translateError("select payment", err)
	}
	return p, nil
}

func (r *ledgerRepository) QueryDebts(ctx context.Context, q repository.DebtQuery) ([]domain.Debt, error) {
	logger.EnterMethod("sqlite.QueryDebts", "ownerID", q.OwnerID)

	query, args := buildDebtQuery(q)
	debts := []domain.Debt{}
	err := r.readSnapshot(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return translateError("query debts", err)
		}
		for rows.Next() {
			d, err := scanDebt(rows)
			if err != nil {
				rows.Close()
				return translateError("scan debt", err)
			}
			debts = append(debts, *d)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return translateError("iterate debts", err)
		}
		return loadChildren(ctx, tx, debts)
	})
	if err != nil {
		logger.ExitMethodWithError("sqlite.QueryDebts", err)
		return nil, err
	}

	logger.ExitMethod("sqlite.QueryDebts", "count", len(debts))
	return debts, nil
}

func (r *ledgerRepository) ListDebtIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM debts ORDER BY issue_date, id`)
	if err != nil {
		return nil, translateError("list debt ids", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translateError("scan debt id", err)
		}
		ids = append(ids, id)
	}
	return ids, translateError("iterate debt ids", rows.Err())
}

func buildDebtQuery(q repository.DebtQuery) (string, []interface{}) {
	var where []string
	var args []interface{}

	f := q.Filter
	if q.OwnerID != "" {
		where = append(where, "d.owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if f.DateFrom != "" {
		where = append(where, "d.issue_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		where = append(where, "d.issue_date <= ?")
		args = append(args, f.DateTo)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, int(s))
		}
		where = append(where, "d.status IN ("+strings.Join(marks, ", ")+")")
	}
	for _, c := range []struct{ column, needle string }{
		{"client", f.Client},
		{"remark", f.Remark},
		{"flight_segment", f.FlightSegment},
		{"ticket_number", f.TicketNumber},
	} {
		if c.needle == "" {
			continue
		}
		// instr is case-sensitive, unlike LIKE.
		where = append(where, "EXISTS (SELECT 1 FROM debt_lines l WHERE l.debt_id = d.id AND instr(l."+c.column+", ?) > 0)")
		args = append(args, c.needle)
	}

	query := `SELECT ` + debtColumns + ` FROM debts d`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY d.issue_date ASC, d.id ASC"
	return query, args
}

func inClause(ids []string) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return "(" + strings.Join(marks, ", ") + ")", args
}

func loadChildren(ctx context.Context, tx *sql.Tx, debts []domain.Debt) error {
	if len(debts) == 0 {
		return nil
	}
	index := make(map[string]*domain.Debt, len(debts))
	ids := make([]string, len(debts))
	for i := range debts {
		debts[i].Lines = []domain.DebtLine{}
		debts[i].Payments = []domain.Payment{}
		index[debts[i].ID] = &debts[i]
		ids[i] = debts[i].ID
	}
	in, args := inClause(ids)

	lineRows, err := tx.QueryContext(ctx, `SELECT `+lineColumns+` FROM debt_lines WHERE debt_id IN `+in+` ORDER BY debt_id, position`, args...)
	if err != nil {
		return translateError("select lines", err)
	}
	for lineRows.Next() {
		var l domain.DebtLine
		if err := lineRows.Scan(&l.ID, &l.DebtID, &l.Position, &l.Client, &l.Amount, &l.FlightSegment, &l.TicketNumber, &l.Remark); err != nil {
			lineRows.Close()
			return translateError("scan line", err)
		}
		if d, ok := index[l.DebtID]; ok {
			d.Lines = append(d.Lines, l)
		}
	}
	lineRows.Close()
	if err := lineRows.Err(); err != nil {
		return translateError("iterate lines", err)
	}

	paymentRows, err := tx.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE debt_id IN `+in+` ORDER BY debt_id, pay_date, created_at`, args...)
	if err != nil {
		return translateError("select payments", err)
	}
	defer paymentRows.Close()
	for paymentRows.Next() {
		p, err := scanPayment(paymentRows)
		if err != nil {
			return translateError("scan payment", err)
		}
		if d, ok := index[p.DebtID]; ok {
			d.Payments = append(d.Payments, *p)
		}
	}
	return translateError("iterate payments", paymentRows.Err())
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDebt(s scanner) (*domain.Debt, error) {
	var d domain.Debt
	var source string
	if err := s.Scan(&d.ID, &d.OwnerCode, &d.OwnerID, &d.IssueDate, &source, &d.TotalAmount, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.SourceType = domain.SourceType(source)
	return &d, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	if err := s.Scan(&p.ID, &p.DebtID, &p.PayerName, &p.Amount, &p.Date, &p.Remark, &p.RecordedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

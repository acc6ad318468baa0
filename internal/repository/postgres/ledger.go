package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

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

// readSnapshot runs fn in a read-only repeatable-read transaction so a debt's
// status and its payments come from the same committed state.
func (r *ledgerRepository) readSnapshot(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
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
	logger.EnterMethod("ledgerRepository.GetDebt", "debtID", id)

	var debt *domain.Debt
	err := r.readSnapshot(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts d WHERE d.id = $1`, id)
		d, err := scanDebt(row)
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
		logger.ExitMethodWithError("ledgerRepository.GetDebt", err, "debtID", id)
		return nil, err
	}

	logger.ExitMethod("ledgerRepository.GetDebt", "debtID", id)
	return debt, nil
}

func (r *ledgerRepository) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, domain.ErrPaymentNotFound)
	}
	if err != nil {
		return nil, translateError("select payment", err)
	}
	return p, nil
}

func (r *ledgerRepository) QueryDebts(ctx context.Context, q repository.DebtQuery) ([]domain.Debt, error) {
	logger.EnterMethod("ledgerRepository.QueryDebts", "ownerID", q.OwnerID)

	query, args := buildDebtQuery(q)
	logger.DatabaseCall("QueryDebts", query, "args", len(args))

	debts := []domain.Debt{}
	err := r.readSnapshot(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return translateError("query debts", err)
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDebt(rows)
			if err != nil {
				return translateError("scan debt", err)
			}
			debts = append(debts, *d)
		}
		if err := rows.Err(); err != nil {
			return translateError("iterate debts", err)
		}
		rows.Close()
		return loadChildren(ctx, tx, debts)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerRepository.QueryDebts", err)
		return nil, err
	}

	logger.ExitMethod("ledgerRepository.QueryDebts", "count", len(debts))
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

// buildDebtQuery renders the SQL-side criteria with positional arguments.
func buildDebtQuery(q repository.DebtQuery) (string, []interface{}) {
	query := `SELECT ` + debtColumns + ` FROM debts d WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	add := func(clause string, arg interface{}) {
		query += fmt.Sprintf(clause, argIndex)
		args = append(args, arg)
		argIndex++
	}

	f := q.Filter
	if q.OwnerID != "" {
		add(" AND d.owner_id = $%d", q.OwnerID)
	}
	if f.DateFrom != "" {
		add(" AND d.issue_date >= $%d", f.DateFrom)
	}
	if f.DateTo != "" {
		add(" AND d.issue_date <= $%d", f.DateTo)
	}
	if len(f.Statuses) > 0 {
		codes := make([]int64, len(f.Statuses))
		for i, s := range f.Statuses {
			codes[i] = int64(s)
		}
		add(" AND d.status = ANY($%d)", pq.Array(codes))
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
		add(" AND EXISTS (SELECT 1 FROM debt_lines l WHERE l.debt_id = d.id AND strpos(l."+c.column+", $%d) > 0)", c.needle)
	}

	query += " ORDER BY d.issue_date ASC, d.id ASC"
	return query, args
}

// loadChildren fills lines and payments of debts in two round trips.
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

	lineRows, err := tx.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM debt_lines WHERE debt_id = ANY($1) ORDER BY debt_id, position`,
		pq.Array(ids))
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

	paymentRows, err := tx.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE debt_id = ANY($1) ORDER BY debt_id, pay_date, created_at`,
		pq.Array(ids))
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
	err := s.Scan(&d.ID, &d.OwnerCode, &d.OwnerID, &d.IssueDate, &source, &d.TotalAmount, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.SourceType = domain.SourceType(strings.TrimSpace(source))
	return &d, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	err := s.Scan(&p.ID, &p.DebtID, &p.PayerName, &p.Amount, &p.Date, &p.Remark, &p.RecordedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

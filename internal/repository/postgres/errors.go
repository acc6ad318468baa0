package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"iou-ledger/internal/domain"
)

const (
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"
	codeLockNotAvailable     pq.ErrorCode = "55P03"
	codeQueryCanceled        pq.ErrorCode = "57014"
	codeUniqueViolation      pq.ErrorCode = "23505"
	codeForeignKeyViolation  pq.ErrorCode = "23503"
	classConnectionException pq.ErrorClass = "08"
)

// translateError maps driver failures onto ledger error kinds, keeping the
// original error in the chain.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == codeSerializationFailure,
			pqErr.Code == codeDeadlockDetected,
			pqErr.Code == codeLockNotAvailable:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrConcurrentModification, err)
		case pqErr.Code == codeQueryCanceled, pqErr.Code.Class() == classConnectionException:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
		case pqErr.Code == codeUniqueViolation && pqErr.Table == "debts":
			return fmt.Errorf("%s: %w: %w", op, domain.ErrDuplicateBatch, err)
		case pqErr.Code == codeForeignKeyViolation && pqErr.Table == "payments":
			return fmt.Errorf("%s: %w: %w", op, domain.ErrHasPayments, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

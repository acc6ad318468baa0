package domain

import (
	"errors"
)

// Sentinel errors surfaced by the ledger. Wrap them with context and test with
// errors.Is.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrDuplicateBatch         = errors.New("duplicate batch")
	ErrCapacityExceeded       = errors.New("identifier capacity exceeded")
	ErrDebtNotFound           = errors.New("debt not found")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrHasPayments            = errors.New("debt has payments")
	ErrForbidden              = errors.New("forbidden")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUnavailable            = errors.New("storage unavailable")
	ErrInvalidFilter          = errors.New("invalid filter")
	ErrInvalidArgument        = errors.New("invalid argument")
)

// IsRetryable returns true if the request may succeed when sent again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrUnavailable)
}

// IsClientError returns true if the error is caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrDuplicateBatch)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDebtNotFound) || errors.Is(err, ErrPaymentNotFound)
}

package grpc

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"iou-ledger/internal/domain"
)

// toStatus maps ledger errors onto gRPC codes. Errors that already carry a
// status are passed through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	st := status.New(codeFor(err), err.Error())
	if reason := reasonFor(err); reason != "" {
		if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}); derr == nil {
			st = detailed
		}
	}
	return st.Err()
}

// ErrorDomain tags the ErrorInfo detail attached to ledger errors.
const ErrorDomain = "ledger.v1"

// errorReasons names each ledger error in status details. Several errors
// share a gRPC code; the reason keeps them apart on the client.
var errorReasons = []struct {
	err    error
	reason string
}{
	{domain.ErrInvalidAmount, "INVALID_AMOUNT"},
	{domain.ErrInvalidFilter, "INVALID_FILTER"},
	{domain.ErrInvalidArgument, "INVALID_ARGUMENT"},
	{domain.ErrDuplicateBatch, "DUPLICATE_BATCH"},
	{domain.ErrCapacityExceeded, "CAPACITY_EXCEEDED"},
	{domain.ErrDebtNotFound, "DEBT_NOT_FOUND"},
	{domain.ErrPaymentNotFound, "PAYMENT_NOT_FOUND"},
	{domain.ErrHasPayments, "HAS_PAYMENTS"},
	{domain.ErrForbidden, "FORBIDDEN"},
	{domain.ErrConcurrentModification, "CONCURRENT_MODIFICATION"},
	{domain.ErrUnavailable, "UNAVAILABLE"},
}

func reasonFor(err error) string {
	for _, r := range errorReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ""
}

func errorForReason(st *status.Status) error {
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		for _, r := range errorReasons {
			if r.reason == info.GetReason() {
				return r.err
			}
		}
	}
	return nil
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrDuplicateBatch):
		return codes.AlreadyExists
	case errors.Is(err, domain.ErrCapacityExceeded):
		return codes.ResourceExhausted
	case domain.IsNotFound(err):
		return codes.NotFound
	case errors.Is(err, domain.ErrHasPayments):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrForbidden):
		return codes.PermissionDenied
	case errors.Is(err, domain.ErrConcurrentModification):
		return codes.Aborted
	case errors.Is(err, domain.ErrUnavailable):
		return codes.Unavailable
	}
	return codes.Internal
}

// FromStatus turns a client-side status error back into the ledger error it
// was mapped from, so callers can keep using errors.Is. The ErrorInfo detail
// decides when present; otherwise the code picks the closest error.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return err
	}
	if sentinel := errorForReason(st); sentinel != nil {
		return &statusError{sentinel: sentinel, msg: st.Message()}
	}
	var sentinel error
	switch st.Code() {
	case codes.InvalidArgument:
		sentinel = domain.ErrInvalidArgument
	case codes.AlreadyExists:
		sentinel = domain.ErrDuplicateBatch
	case codes.ResourceExhausted:
		sentinel = domain.ErrCapacityExceeded
	case codes.NotFound:
		sentinel = domain.ErrDebtNotFound
	case codes.FailedPrecondition:
		sentinel = domain.ErrHasPayments
	case codes.PermissionDenied, codes.Unauthenticated:
		sentinel = domain.ErrForbidden
	case codes.Aborted:
		sentinel = domain.ErrConcurrentModification
	case codes.Unavailable, codes.DeadlineExceeded:
		sentinel = domain.ErrUnavailable
	default:
		return err
	}
	return &statusError{sentinel: sentinel, msg: st.Message()}
}

type statusError struct {
	sentinel error
	msg      string
}

func (e *statusError) Error() string { return e.msg }
func (e *statusError) Unwrap() error { return e.sentinel }

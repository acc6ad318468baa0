package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Status is the derived payment state of a debt. The numeric codes are shared
// with the export and report consumers and must not be renumbered.
type Status int

const (
	StatusUnpaid          Status = 0
	StatusPartiallyPaid   Status = 1
	StatusPaid            Status = 2
	StatusNegativeInitial Status = 3
	StatusOverpaid        Status = 4
)

var statusNames = map[Status]string{
	StatusUnpaid:          "UNPAID",
	StatusPartiallyPaid:   "PARTIALLY_PAID",
	StatusPaid:            "PAID",
	StatusNegativeInitial: "NEGATIVE_INITIAL",
	StatusOverpaid:        "OVERPAID",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether s is one of the five known codes.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus accepts either the numeric code or the upper-case name.
func ParseStatus(v string) (Status, bool) {
	for s, name := range statusNames {
		if v == name || v == strconv.Itoa(int(s)) {
			return s, true
		}
	}
	return 0, false
}

// DeriveStatus maps (total, paid) to a Status. The branches are evaluated in
// order; a zero total with nothing paid is Unpaid because the zero-paid check
// comes before the equality check.
func DeriveStatus(total, paid decimal.Decimal) Status {
	switch {
	case total.IsNegative():
		return StatusNegativeInitial
	case paid.IsZero():
		return StatusUnpaid
	case paid.LessThan(total):
		return StatusPartiallyPaid
	case paid.Equal(total):
		return StatusPaid
	default:
		return StatusOverpaid
	}
}

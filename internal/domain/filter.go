package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DebtFilter holds conjunctive query criteria. Zero values mean "no
// restriction". Line fields match as case-sensitive substrings of any line.
type DebtFilter struct {
	DateFrom      string
	DateTo        string
	Client        string
	Remark        string
	FlightSegment string
	TicketNumber  string
	Total         *AmountRange
	Rest          *AmountRange
	Statuses      []Status
}

// Validate fails fast on malformed bounds rather than ignoring them.
func (f DebtFilter) Validate() error {
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d == "" {
			continue
		}
		if err := ValidateDate(d); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}
	if f.DateFrom != "" && f.DateTo != "" && f.DateFrom > f.DateTo {
		return fmt.Errorf("%w: date range %s..%s is inverted", ErrInvalidFilter, f.DateFrom, f.DateTo)
	}
	for _, r := range []*AmountRange{f.Total, f.Rest} {
		if r != nil && r.Radius.IsNegative() {
			return fmt.Errorf("%w: amount radius %s is negative", ErrInvalidFilter, r.Radius)
		}
	}
	for _, s := range f.Statuses {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown status %d", ErrInvalidFilter, int(s))
		}
	}
	return nil
}

// MatchAmounts applies the total and rest ranges. Payments must be loaded.
func (f DebtFilter) MatchAmounts(d *Debt) bool {
	if f.Total != nil && !f.Total.Contains(d.TotalAmount) {
		return false
	}
	if f.Rest != nil && !f.Rest.Contains(d.Rest()) {
		return false
	}
	return true
}

// Match evaluates every criterion against a fully loaded debt.
func (f DebtFilter) Match(d *Debt) bool {
	if f.DateFrom != "" && d.IssueDate < f.DateFrom {
		return false
	}
	if f.DateTo != "" && d.IssueDate > f.DateTo {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, d.Status) {
		return false
	}
	lineChecks := []struct {
		needle string
		field  func(DebtLine) string
	}{
		{f.Client, func(l DebtLine) string { return l.Client }},
		{f.Remark, func(l DebtLine) string { return l.Remark }},
		{f.FlightSegment, func(l DebtLine) string { return l.FlightSegment }},
		{f.TicketNumber, func(l DebtLine) string { return l.TicketNumber }},
	}
	for _, c := range lineChecks {
		if c.needle != "" && !anyLine(d.Lines, c.needle, c.field) {
			return false
		}
	}
	return f.MatchAmounts(d)
}

func containsStatus(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func anyLine(lines []DebtLine, needle string, field func(DebtLine) string) bool {
	for _, l := range lines {
		if strings.Contains(field(l), needle) {
			return true
		}
	}
	return false
}

// StatusTotals aggregates one status bucket of a query result.
type StatusTotals struct {
	Status Status          `json:"status"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
	Paid   decimal.Decimal `json:"paid"`
	Rest   decimal.Decimal `json:"rest"`
}

// Summary aggregates a set of debts per status.
type Summary struct {
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	Paid     decimal.Decimal `json:"paid"`
	Rest     decimal.Decimal `json:"rest"`
	ByStatus []StatusTotals  `json:"by_status"`
}

// Summarize folds debts into a Summary ordered by status code.
func Summarize(debts []Debt) Summary {
	buckets := make(map[Status]*StatusTotals)
	sum := Summary{Total: decimal.Zero, Paid: decimal.Zero, Rest: decimal.Zero}
	for i := range debts {
		d := &debts[i]
		b, ok := buckets[d.Status]
		if !ok {
			b = &StatusTotals{Status: d.Status, Total: decimal.Zero, Paid: decimal.Zero, Rest: decimal.Zero}
			buckets[d.Status] = b
		}
		paid := d.Paid()
		b.Count++
		b.Total = b.Total.Add(d.TotalAmount)
		b.Paid = b.Paid.Add(paid)
		b.Rest = b.Rest.Add(d.TotalAmount.Sub(paid))
		sum.Count++
		sum.Total = sum.Total.Add(d.TotalAmount)
		sum.Paid = sum.Paid.Add(paid)
		sum.Rest = sum.Rest.Add(d.TotalAmount.Sub(paid))
	}
	for s := StatusUnpaid; s <= StatusOverpaid; s++ {
		if b, ok := buckets[s]; ok {
			sum.ByStatus = append(sum.ByStatus, *b)
		}
	}
	return sum
}

package bridge

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"iou-ledger/internal/domain"
)

type GroupBy string

const (
	GroupNone     GroupBy = ""
	GroupByOwner  GroupBy = "owner"
	GroupByStatus GroupBy = "status"
)

func ParseGroupBy(v string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(v))); g {
	case GroupNone, GroupByOwner, GroupByStatus:
		return g, nil
	}
	return GroupNone, fmt.Errorf("%w: unknown group_by %q", domain.ErrInvalidFilter, v)
}

type ExportOptions struct {
	GroupBy GroupBy
	// Summary appends per-status and grand totals after the rows.
	Summary bool
}

// ExportColumns is the header row of every export. Debt-level columns repeat
// on each of the debt's lines.
var ExportColumns = []string{
	"debt_id", "owner_code", "owner_id", "issue_date", "source_type",
	"status_code", "status", "total", "paid", "rest",
	"line", "client", "amount", "flight_segment", "ticket_number", "remark",
}

type Exporter struct {
	currency string
}

// NewExporter returns an exporter that renders summary amounts in currency
// (an ISO 4217 code).
func NewExporter(currency string) *Exporter {
	if currency == "" {
		currency = money.USD
	}
	return &Exporter{currency: strings.ToUpper(currency)}
}

// Write renders debts as CSV. Rows keep the query order (issue date, id)
// inside each group.
func (e *Exporter) Write(w io.Writer, debts []domain.Debt, opts ExportOptions) error {
	ordered := Group(debts, opts.GroupBy)

	out := csv.NewWriter(w)
	if err := out.Write(ExportColumns); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for i := range ordered {
		for _, row := range debtRows(&ordered[i]) {
			if err := out.Write(row); err != nil {
				return fmt.Errorf("failed to write debt %s: %w", ordered[i].ID, err)
			}
		}
	}

	if opts.Summary {
		if err := e.writeSummary(out, domain.Summarize(ordered)); err != nil {
			return err
		}
	}

	out.Flush()
	return out.Error()
}

// Group orders debts by the grouping key, stable within a group.
func Group(debts []domain.Debt, by GroupBy) []domain.Debt {
	ordered := append([]domain.Debt(nil), debts...)
	switch by {
	case GroupByOwner:
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].OwnerCode < ordered[j].OwnerCode })
	case GroupByStatus:
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Status < ordered[j].Status })
	}
	return ordered
}

func debtRows(d *domain.Debt) [][]string {
	paid := d.Paid()
	head := []string{
		d.ID, d.OwnerCode, d.OwnerID, d.IssueDate, string(d.SourceType),
		strconv.Itoa(int(d.Status)), d.Status.String(),
		domain.FormatAmount(d.TotalAmount), domain.FormatAmount(paid), domain.FormatAmount(d.TotalAmount.Sub(paid)),
	}
	if len(d.Lines) == 0 {
		return [][]string{append(head, "", "", "", "", "", "")}
	}
	rows := make([][]string, 0, len(d.Lines))
	for _, l := range d.Lines {
		row := append(append([]string(nil), head...),
			strconv.Itoa(l.Position), l.Client, domain.FormatAmount(l.Amount),
			l.FlightSegment, l.TicketNumber, l.Remark,
		)
		rows = append(rows, row)
	}
	return rows
}

func (e *Exporter) writeSummary(out *csv.Writer, s domain.Summary) error {
	rows := [][]string{
		{},
		{"summary", "status_code", "status", "count", "total", "paid", "rest", "rest_display"},
	}
	for _, b := range s.ByStatus {
		rows = append(rows, []string{
			"status", strconv.Itoa(int(b.Status)), b.Status.String(), strconv.Itoa(b.Count),
			domain.FormatAmount(b.Total), domain.FormatAmount(b.Paid), domain.FormatAmount(b.Rest), e.Display(b.Rest),
		})
	}
	rows = append(rows, []string{
		"total", "", "", strconv.Itoa(s.Count),
		domain.FormatAmount(s.Total), domain.FormatAmount(s.Paid), domain.FormatAmount(s.Rest), e.Display(s.Rest),
	})
	for _, r := range rows {
		if err := out.Write(r); err != nil {
			return fmt.Errorf("failed to write export summary: %w", err)
		}
	}
	return nil
}

// Display formats an amount with the exporter's currency symbol. The amount
// is rounded to the currency's own minor unit (none for JPY, three for KWD).
func (e *Exporter) Display(d decimal.Decimal) string {
	fraction := int32(domain.AmountScale)
	if cur := money.GetCurrency(e.currency); cur != nil {
		fraction = int32(cur.Fraction)
	}
	return money.New(d.Shift(fraction).Round(0).IntPart(), e.currency).Display()
}

package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// IssueDateLayout is the YYMMDD layout used for issue and payment dates.
const IssueDateLayout = "060102"

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

// ValidateDate checks a YYMMDD date string.
func ValidateDate(v string) error {
	if !sixDigits.MatchString(v) {
		return fmt.Errorf("%w: date %q must be 6 digits YYMMDD", ErrInvalidArgument, v)
	}
	if _, err := time.Parse(IssueDateLayout, v); err != nil {
		return fmt.Errorf("%w: date %q is not a calendar day", ErrInvalidArgument, v)
	}
	return nil
}

type Debt struct {
	ID          string          `json:"id"`
	OwnerCode   string          `json:"owner_code"`
	OwnerID     string          `json:"owner_id"`
	IssueDate   string          `json:"issue_date"`
	SourceType  SourceType      `json:"source_type"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []DebtLine      `json:"lines"`
	Payments    []Payment       `json:"payments"`
}

// Paid sums the payments loaded on d.
func (d *Debt) Paid() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range d.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Rest is the outstanding balance: total minus everything paid.
func (d *Debt) Rest() decimal.Decimal {
	return d.TotalAmount.Sub(d.Paid())
}

// BatchKey returns the (owner code, date, source type) prefix of the id.
func (d *Debt) BatchKey() string {
	return BatchKey(d.OwnerCode, d.IssueDate, d.SourceType)
}

type DebtLine struct {
	ID            int64           `json:"id"`
	DebtID        string          `json:"debt_id"`
	Position      int             `json:"position"`
	Client        string          `json:"client"`
	Amount        decimal.Decimal `json:"amount"`
	FlightSegment string          `json:"flight_segment"`
	TicketNumber  string          `json:"ticket_number"`
	Remark        string          `json:"remark"`
}

type Payment struct {
	ID         string          `json:"id"`
	DebtID     string          `json:"debt_id"`
	PayerName  string          `json:"payer_name"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"`
	Remark     string          `json:"remark"`
	RecordedBy string          `json:"recorded_by"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LineInput is one itemized line as supplied by a caller or an import batch.
// Amount is kept textual so malformed values surface as ErrInvalidAmount.
type LineInput struct {
	Client        string `json:"client"`
	Amount        string `json:"amount"`
	FlightSegment string `json:"flight_segment"`
	TicketNumber  string `json:"ticket_number"`
	Remark        string `json:"remark"`
}

// NewDebt is the input of a single createDebt call. OwnerID defaults to the
// calling actor.
type NewDebt struct {
	OwnerCode  string      `json:"owner_code"`
	IssueDate  string      `json:"issue_date"`
	SourceType SourceType  `json:"source_type"`
	OwnerID    string      `json:"owner_id,omitempty"`
	Lines      []LineInput `json:"lines"`
}

// PaymentInput carries the caller-supplied fields of a payment.
type PaymentInput struct {
	PayerName string `json:"payer_name"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Remark    string `json:"remark"`
}

// BuildLines parses the inputs into lines and returns their exact sum.
func BuildLines(inputs []LineInput) ([]DebtLine, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, fmt.Errorf("%w: a debt needs at least one line", ErrInvalidArgument)
	}
	total := decimal.Zero
	lines := make([]DebtLine, 0, len(inputs))
	for i, in := range inputs {
		amount, err := ParseAmount(in.Amount)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("line %d: %w", i+1, err)
		}
		total = total.Add(amount)
		lines = append(lines, DebtLine{
			Position:      i + 1,
			Client:        in.Client,
			Amount:        amount,
			FlightSegment: in.FlightSegment,
			TicketNumber:  in.TicketNumber,
			Remark:        in.Remark,
		})
	}
	return lines, total, nil
}

// Validate checks the payment fields and returns the parsed amount.
func (in PaymentInput) Validate() (decimal.Decimal, error) {
	amount, err := ParsePositiveAmount(in.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	if in.PayerName == "" {
		return decimal.Zero, fmt.Errorf("%w: payer name is required", ErrInvalidArgument)
	}
	if err := ValidateDate(in.Date); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

package grpc

import "iou-ledger/internal/domain"

// Wire messages of ledger.v1.LedgerService. Amounts are decimal strings with
// two fractional digits.

type Empty struct{}

type LineMessage struct {
	Position      int    `json:"position"`
	Client        string `json:"client"`
	Amount        string `json:"amount"`
	FlightSegment string `json:"flight_segment,omitempty"`
	TicketNumber  string `json:"ticket_number,omitempty"`
	Remark        string `json:"remark,omitempty"`
}

type PaymentMessage struct {
	ID         string `json:"id"`
	DebtID     string `json:"debt_id"`
	PayerName  string `json:"payer_name"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
	Remark     string `json:"remark,omitempty"`
	RecordedBy string `json:"recorded_by"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type DebtMessage struct {
	ID          string           `json:"id"`
	OwnerCode   string           `json:"owner_code"`
	OwnerID     string           `json:"owner_id"`
	IssueDate   string           `json:"issue_date"`
	SourceType  string           `json:"source_type"`
	TotalAmount string           `json:"total_amount"`
	Paid        string           `json:"paid"`
	Rest        string           `json:"rest"`
	StatusCode  int              `json:"status_code"`
	Status      string           `json:"status"`
	CreatedAt   string           `json:"created_at"`
	Lines       []LineMessage    `json:"lines"`
	Payments    []PaymentMessage `json:"payments"`
}

type AmountRangeMessage struct {
	Center string `json:"center"`
	Radius string `json:"radius,omitempty"`
}

type FilterMessage struct {
	DateFrom      string              `json:"date_from,omitempty"`
	DateTo        string              `json:"date_to,omitempty"`
	Client        string              `json:"client,omitempty"`
	Remark        string              `json:"remark,omitempty"`
	FlightSegment string              `json:"flight_segment,omitempty"`
	TicketNumber  string              `json:"ticket_number,omitempty"`
	Total         *AmountRangeMessage `json:"total,omitempty"`
	Rest          *AmountRangeMessage `json:"rest,omitempty"`
	Statuses      []int               `json:"statuses,omitempty"`
}

type CreateDebtRequest struct {
	Debt domain.NewDebt `json:"debt"`
}

type DebtResponse struct {
	Debt DebtMessage `json:"debt"`
}

type ImportBatchRequest struct {
	Batch domain.Batch `json:"batch"`
}

type DebtsResponse struct {
	Debts []DebtMessage `json:"debts"`
}

type GetDebtRequest struct {
	ID string `json:"id"`
}

type QueryDebtsRequest struct {
	Filter FilterMessage `json:"filter"`
}

type DeleteDebtRequest struct {
	ID string `json:"id"`
}

type AddPaymentRequest struct {
	DebtID  string              `json:"debt_id"`
	Payment domain.PaymentInput `json:"payment"`
}

type UpdatePaymentRequest struct {
	PaymentID string              `json:"payment_id"`
	Payment   domain.PaymentInput `json:"payment"`
}

type PaymentResponse struct {
	Payment PaymentMessage `json:"payment"`
}

type RemovePaymentRequest struct {
	PaymentID string `json:"payment_id"`
}

type ListPaymentsRequest struct {
	DebtID string `json:"debt_id"`
}

type ListPaymentsResponse struct {
	Payments []PaymentMessage `json:"payments"`
}

type SummarizeRequest struct {
	Filter FilterMessage `json:"filter"`
}

type StatusTotalsMessage struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Count      int    `json:"count"`
	Total      string `json:"total"`
	Paid       string `json:"paid"`
	Rest       string `json:"rest"`
}

type SummaryResponse struct {
	Count    int                   `json:"count"`
	Total    string                `json:"total"`
	Paid     string                `json:"paid"`
	Rest     string                `json:"rest"`
	ByStatus []StatusTotalsMessage `json:"by_status"`
}

type ReconcileStatusesRequest struct{}

type ReconcileStatusesResponse struct {
	Repaired int `json:"repaired"`
}

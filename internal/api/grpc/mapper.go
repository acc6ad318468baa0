package grpc

import (
	"time"

	"iou-ledger/internal/domain"
)

func MapDomainDebtToMessage(d *domain.Debt) DebtMessage {
	paid := d.Paid()
	msg := DebtMessage{
		ID:          d.ID,
		OwnerCode:   d.OwnerCode,
		OwnerID:     d.OwnerID,
		IssueDate:   d.IssueDate,
		SourceType:  string(d.SourceType),
		TotalAmount: domain.FormatAmount(d.TotalAmount),
		Paid:        domain.FormatAmount(paid),
		Rest:        domain.FormatAmount(d.TotalAmount.Sub(paid)),
		StatusCode:  int(d.Status),
		Status:      d.Status.String(),
		CreatedAt:   formatTime(d.CreatedAt),
		Lines:       make([]LineMessage, len(d.Lines)),
		Payments:    MapDomainPaymentsToMessages(d.Payments),
	}
	for i, l := range d.Lines {
		msg.Lines[i] = LineMessage{
			Position:      l.Position,
			Client:        l.Client,
			Amount:        domain.FormatAmount(l.Amount),
			FlightSegment: l.FlightSegment,
			TicketNumber:  l.TicketNumber,
			Remark:        l.Remark,
		}
	}
	return msg
}

func MapDomainDebtsToMessages(debts []domain.Debt) []DebtMessage {
	out := make([]DebtMessage, len(debts))
	for i := range debts {
		out[i] = MapDomainDebtToMessage(&debts[i])
	}
	return out
}

func MapDomainPaymentToMessage(p *domain.Payment) PaymentMessage {
	return PaymentMessage{
		ID:         p.ID,
		DebtID:     p.DebtID,
		PayerName:  p.PayerName,
		Amount:     domain.FormatAmount(p.Amount),
		Date:       p.Date,
		Remark:     p.Remark,
		RecordedBy: p.RecordedBy,
		CreatedAt:  formatTime(p.CreatedAt),
		UpdatedAt:  formatTime(p.UpdatedAt),
	}
}

func MapDomainPaymentsToMessages(payments []domain.Payment) []PaymentMessage {
	out := make([]PaymentMessage, len(payments))
	for i := range payments {
		out[i] = MapDomainPaymentToMessage(&payments[i])
	}
	return out
}

func MapDomainSummaryToMessage(s *domain.Summary) *SummaryResponse {
	resp := &SummaryResponse{
		Count:    s.Count,
		Total:    domain.FormatAmount(s.Total),
		Paid:     domain.FormatAmount(s.Paid),
		Rest:     domain.FormatAmount(s.Rest),
		ByStatus: make([]StatusTotalsMessage, len(s.ByStatus)),
	}
	for i, b := range s.ByStatus {
		resp.ByStatus[i] = StatusTotalsMessage{
			StatusCode: int(b.Status),
			Status:     b.Status.String(),
			Count:      b.Count,
			Total:      domain.FormatAmount(b.Total),
			Paid:       domain.FormatAmount(b.Paid),
			Rest:       domain.FormatAmount(b.Rest),
		}
	}
	return resp
}

// MapFilterMessageToDomain parses the wire filter. Range bounds that are not
// numeric fail with ErrInvalidFilter.
func MapFilterMessageToDomain(m FilterMessage) (domain.DebtFilter, error) {
	f := domain.DebtFilter{
		DateFrom:      m.DateFrom,
		DateTo:        m.DateTo,
		Client:        m.Client,
		Remark:        m.Remark,
		FlightSegment: m.FlightSegment,
		TicketNumber:  m.TicketNumber,
	}
	var err error
	if m.Total != nil {
		if f.Total, err = domain.NewAmountRange(m.Total.Center, m.Total.Radius); err != nil {
			return domain.DebtFilter{}, err
		}
	}
	if m.Rest != nil {
		if f.Rest, err = domain.NewAmountRange(m.Rest.Center, m.Rest.Radius); err != nil {
			return domain.DebtFilter{}, err
		}
	}
	for _, code := range m.Statuses {
		f.Statuses = append(f.Statuses, domain.Status(code))
	}
	return f, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package bridge

import (
	"fmt"
	"net/url"
	"strings"

	"iou-ledger/internal/domain"
)

// ParseFilter builds a DebtFilter from query parameters:
//
//	date_from, date_to                YYMMDD, inclusive
//	client, remark, flight_segment,
//	ticket_number                     substring of any line
//	total, total_radius               amount range on the total
//	rest, rest_radius                 amount range on the outstanding balance
//	status                            code or name; repeat or comma-separate
func ParseFilter(values url.Values) (domain.DebtFilter, error) {
	f := domain.DebtFilter{
		DateFrom:      values.Get("date_from"),
		DateTo:        values.Get("date_to"),
		Client:        values.Get("client"),
		Remark:        values.Get("remark"),
		FlightSegment: values.Get("flight_segment"),
		TicketNumber:  values.Get("ticket_number"),
	}

	var err error
	if f.Total, err = amountRange(values, "total"); err != nil {
		return domain.DebtFilter{}, err
	}
	if f.Rest, err = amountRange(values, "rest"); err != nil {
		return domain.DebtFilter{}, err
	}

	for _, v := range values["status"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			s, ok := domain.ParseStatus(part)
			if !ok {
				return domain.DebtFilter{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidFilter, part)
			}
			f.Statuses = append(f.Statuses, s)
		}
	}

	if err := f.Validate(); err != nil {
		return domain.DebtFilter{}, err
	}
	return f, nil
}

func amountRange(values url.Values, name string) (*domain.AmountRange, error) {
	center := values.Get(name)
	radius := values.Get(name + "_radius")
	if center == "" {
		if radius != "" {
			return nil, fmt.Errorf("%w: %s_radius given without %s", domain.ErrInvalidFilter, name, name)
		}
		return nil, nil
	}
	return domain.NewAmountRange(center, radius)
}

package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"iou-ledger/internal/domain"
)

func sampleDebt() *domain.Debt {
	return &domain.Debt{
		ID:          "ABC240101H01",
		IssueDate:   "240101",
		TotalAmount: d("100.00"),
		Status:      domain.StatusPartiallyPaid,
		Lines: []domain.DebtLine{
			{Client: "Smith", Amount: d("60.00"), FlightSegment: "CDG-JFK", TicketNumber: "057-1234"},
			{Client: "Jones", Amount: d("40.00"), Remark: "group fare"},
		},
		Payments: []domain.Payment{{Amount: d("40.00")}},
	}
}

func TestDebtFilter_Validate(t *testing.T) {
	assert.NoError(t, domain.DebtFilter{DateFrom: "240101", DateTo: "240101"}.Validate())
	assert.ErrorIs(t, domain.DebtFilter{DateFrom: "240201", DateTo: "240101"}.Validate(), domain.ErrInvalidFilter)
	assert.ErrorIs(t, domain.DebtFilter{DateFrom: "24-01-01"}.Validate(), domain.ErrInvalidFilter)
	assert.ErrorIs(t, domain.DebtFilter{Statuses: []domain.Status{9}}.Validate(), domain.ErrInvalidFilter)
}

func TestDebtFilter_Match(t *testing.T) {
	debt := sampleDebt()
	rest60, _ := domain.NewAmountRange("60", "0")
	total90, _ := domain.NewAmountRange("90", "5")

	cases := []struct {
		name   string
		filter domain.DebtFilter
		want   bool
	}{
		{"Empty", domain.DebtFilter{}, true},
		{"DateInclusive", domain.DebtFilter{DateFrom: "240101", DateTo: "240101"}, true},
		{"DateBefore", domain.DebtFilter{DateFrom: "240102"}, false},
		{"ClientAnyLine", domain.DebtFilter{Client: "Jon"}, true},
		{"ClientCaseSensitive", domain.DebtFilter{Client: "jones"}, false},
		{"RemarkAndSegment", domain.DebtFilter{Remark: "group", FlightSegment: "JFK"}, true},
		{"Ticket", domain.DebtFilter{TicketNumber: "999"}, false},
		{"Rest", domain.DebtFilter{Rest: rest60}, true},
		{"TotalOutOfRadius", domain.DebtFilter{Total: total90}, false},
		{"StatusSet", domain.DebtFilter{Statuses: []domain.Status{domain.StatusPaid, domain.StatusPartiallyPaid}}, true},
		{"StatusExcluded", domain.DebtFilter{Statuses: []domain.Status{domain.StatusUnpaid}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Match(debt))
		})
	}
}

func TestSummarize(t *testing.T) {
	paid := domain.Debt{TotalAmount: d("10.00"), Status: domain.StatusPaid, Payments: []domain.Payment{{Amount: d("10.00")}}}
	sum := domain.Summarize([]domain.Debt{*sampleDebt(), paid})
	assert.Equal(t, 2, sum.Count)
	assert.True(t, sum.Total.Equal(d("110")))
	assert.True(t, sum.Paid.Equal(d("50")))
	assert.True(t, sum.Rest.Equal(d("60")))
	if assert.Len(t, sum.ByStatus, 2) {
		assert.Equal(t, domain.StatusPartiallyPaid, sum.ByStatus[0].Status)
		assert.Equal(t, domain.StatusPaid, sum.ByStatus[1].Status)
	}
}

func TestActorContext(t *testing.T) {
	user := domain.ActorContext{ActorID: "u1", Role: domain.RoleUser}
	assert.NoError(t, user.Validate())
	assert.True(t, user.CanAccess("u1"))
	assert.False(t, user.CanAccess("u2"))

	mgr := domain.ActorContext{ActorID: "m1", Role: domain.RoleManager}
	assert.True(t, mgr.CanAccess("u2"))

	assert.ErrorIs(t, domain.ActorContext{Role: domain.RoleAdmin}.Validate(), domain.ErrForbidden)
	assert.ErrorIs(t, domain.ActorContext{ActorID: "x", Role: "root"}.Validate(), domain.ErrForbidden)
}

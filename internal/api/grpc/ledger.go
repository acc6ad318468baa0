package grpc

import (
	"context"

	"iou-ledger/internal/service"
)

type LedgerHandler struct {
	ledgerSvc service.LedgerService
}

var _ LedgerServer = (*LedgerHandler)(nil)

func NewLedgerHandler(ledgerSvc service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

func (h *LedgerHandler) CreateDebt(ctx context.Context, req *CreateDebtRequest) (*DebtResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	debt, err := h.ledgerSvc.CreateDebt(ctx, actor, req.Debt)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DebtResponse{Debt: MapDomainDebtToMessage(debt)}, nil
}

func (h *LedgerHandler) ImportBatch(ctx context.Context, req *ImportBatchRequest) (*DebtsResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	debts, err := h.ledgerSvc.ImportBatch(ctx, actor, req.Batch)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DebtsResponse{Debts: MapDomainDebtsToMessages(debts)}, nil
}

func (h *LedgerHandler) GetDebt(ctx context.Context, req *GetDebtRequest) (*DebtResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	debt, err := h.ledgerSvc.GetDebt(ctx, actor, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DebtResponse{Debt: MapDomainDebtToMessage(debt)}, nil
}

func (h *LedgerHandler) QueryDebts(ctx context.Context, req *QueryDebtsRequest) (*DebtsResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := MapFilterMessageToDomain(req.Filter)
	if err != nil {
		return nil, toStatus(err)
	}
	debts, err := h.ledgerSvc.QueryDebts(ctx, actor, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DebtsResponse{Debts: MapDomainDebtsToMessages(debts)}, nil
}

func (h *LedgerHandler) DeleteDebt(ctx context.Context, req *DeleteDebtRequest) (*Empty, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.ledgerSvc.DeleteDebt(ctx, actor, req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (h *LedgerHandler) AddPayment(ctx context.Context, req *AddPaymentRequest) (*PaymentResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.ledgerSvc.AddPayment(ctx, actor, req.DebtID, req.Payment)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PaymentResponse{Payment: MapDomainPaymentToMessage(p)}, nil
}

func (h *LedgerHandler) UpdatePayment(ctx context.Context, req *UpdatePaymentRequest) (*PaymentResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.ledgerSvc.UpdatePayment(ctx, actor, req.PaymentID, req.Payment)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PaymentResponse{Payment: MapDomainPaymentToMessage(p)}, nil
}

func (h *LedgerHandler) RemovePayment(ctx context.Context, req *RemovePaymentRequest) (*Empty, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.ledgerSvc.RemovePayment(ctx, actor, req.PaymentID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (h *LedgerHandler) ListPayments(ctx context.Context, req *ListPaymentsRequest) (*ListPaymentsResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := h.ledgerSvc.ListPayments(ctx, actor, req.DebtID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListPaymentsResponse{Payments: MapDomainPaymentsToMessages(payments)}, nil
}

func (h *LedgerHandler) Summarize(ctx context.Context, req *SummarizeRequest) (*SummaryResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := MapFilterMessageToDomain(req.Filter)
	if err != nil {
		return nil, toStatus(err)
	}
	summary, err := h.ledgerSvc.Summarize(ctx, actor, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	return MapDomainSummaryToMessage(summary), nil
}

func (h *LedgerHandler) ReconcileStatuses(ctx context.Context, _ *ReconcileStatusesRequest) (*ReconcileStatusesResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	repaired, err := h.ledgerSvc.ReconcileStatuses(ctx, actor)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReconcileStatusesResponse{Repaired: repaired}, nil
}

package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "ledger.v1.LedgerService"

// LedgerServer is the server side of ledger.v1.LedgerService.
type LedgerServer interface {
	CreateDebt(context.Context, *CreateDebtRequest) (*DebtResponse, error)
	ImportBatch(context.Context, *ImportBatchRequest) (*DebtsResponse, error)
	GetDebt(context.Context, *GetDebtRequest) (*DebtResponse, error)
	QueryDebts(context.Context, *QueryDebtsRequest) (*DebtsResponse, error)
	DeleteDebt(context.Context, *DeleteDebtRequest) (*Empty, error)
	AddPayment(context.Context, *AddPaymentRequest) (*PaymentResponse, error)
	UpdatePayment(context.Context, *UpdatePaymentRequest) (*PaymentResponse, error)
	RemovePayment(context.Context, *RemovePaymentRequest) (*Empty, error)
	ListPayments(context.Context, *ListPaymentsRequest) (*ListPaymentsResponse, error)
	Summarize(context.Context, *SummarizeRequest) (*SummaryResponse, error)
	ReconcileStatuses(context.Context, *ReconcileStatusesRequest) (*ReconcileStatusesResponse, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(LedgerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LedgerServiceDesc describes ledger.v1.LedgerService for grpc.Server.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateDebt", LedgerServer.CreateDebt),
		unary("ImportBatch", LedgerServer.ImportBatch),
		unary("GetDebt", LedgerServer.GetDebt),
		unary("QueryDebts", LedgerServer.QueryDebts),
		unary("DeleteDebt", LedgerServer.DeleteDebt),
		unary("AddPayment", LedgerServer.AddPayment),
		unary("UpdatePayment", LedgerServer.UpdatePayment),
		unary("RemovePayment", LedgerServer.RemovePayment),
		unary("ListPayments", LedgerServer.ListPayments),
		unary("Summarize", LedgerServer.Summarize),
		unary("ReconcileStatuses", LedgerServer.ReconcileStatuses),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.proto",
}

func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// LedgerClient calls ledger.v1.LedgerService using the JSON codec.
type LedgerClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerClient(cc grpc.ClientConnInterface) *LedgerClient {
	return &LedgerClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *LedgerClient, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerClient) CreateDebt(ctx context.Context, in *CreateDebtRequest, opts ...grpc.CallOption) (*DebtResponse, error) {
	return invoke[DebtResponse](ctx, c, "CreateDebt", in, opts)
}

func (c *LedgerClient) ImportBatch(ctx context.Context, in *ImportBatchRequest, opts ...grpc.CallOption) (*DebtsResponse, error) {
	return invoke[DebtsResponse](ctx, c, "ImportBatch", in, opts)
}

func (c *LedgerClient) GetDebt(ctx context.Context, in *GetDebtRequest, opts ...grpc.CallOption) (*DebtResponse, error) {
	return invoke[DebtResponse](ctx, c, "GetDebt", in, opts)
}

func (c *LedgerClient) QueryDebts(ctx context.Context, in *QueryDebtsRequest, opts ...grpc.CallOption) (*DebtsResponse, error) {
	return invoke[DebtsResponse](ctx, c, "QueryDebts", in, opts)
}

func (c *LedgerClient) DeleteDebt(ctx context.Context, in *DeleteDebtRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, "DeleteDebt", in, opts)
}

func (c *LedgerClient) AddPayment(ctx context.Context, in *AddPaymentRequest, opts ...grpc.CallOption) (*PaymentResponse, error) {
	return invoke[PaymentResponse](ctx, c, "AddPayment", in, opts)
}

func (c *LedgerClient) UpdatePayment(ctx context.Context, in *UpdatePaymentRequest, opts ...grpc.CallOption) (*PaymentResponse, error) {
	return invoke[PaymentResponse](ctx, c, "UpdatePayment", in, opts)
}

func (c *LedgerClient) RemovePayment(ctx context.Context, in *RemovePaymentRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, "RemovePayment", in, opts)
}

func (c *LedgerClient) ListPayments(ctx context.Context, in *ListPaymentsRequest, opts ...grpc.CallOption) (*ListPaymentsResponse, error) {
	return invoke[ListPaymentsResponse](ctx, c, "ListPayments", in, opts)
}

func (c *LedgerClient) Summarize(ctx context.Context, in *SummarizeRequest, opts ...grpc.CallOption) (*SummaryResponse, error) {
	return invoke[SummaryResponse](ctx, c, "Summarize", in, opts)
}

func (c *LedgerClient) ReconcileStatuses(ctx context.Context, in *ReconcileStatusesRequest, opts ...grpc.CallOption) (*ReconcileStatusesResponse, error) {
	return invoke[ReconcileStatusesResponse](ctx, c, "ReconcileStatuses", in, opts)
}

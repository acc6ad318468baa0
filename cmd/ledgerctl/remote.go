package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/subcommands"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	ledgergrpc "iou-ledger/internal/api/grpc"
	"iou-ledger/internal/bridge"
	"iou-ledger/internal/domain"
)

// remoteFlags are shared by every command that calls the server.
type remoteFlags struct {
	addr    string
	token   string
	timeout time.Duration
}

func (r *remoteFlags) register(f *flag.FlagSet) {
	f.StringVar(&r.addr, "addr", envOr("LEDGER_ADDR", "localhost:9090"), "ledger server gRPC address")
	f.StringVar(&r.token, "token", os.Getenv("LEDGER_TOKEN"), "access token (default $LEDGER_TOKEN)")
	f.DurationVar(&r.timeout, "timeout", 30*time.Second, "request timeout")
}

// dial returns a client and a context carrying the bearer token.
func (r *remoteFlags) dial(ctx context.Context) (*ledgergrpc.LedgerClient, context.Context, func(), error) {
	if r.token == "" {
		return nil, nil, nil, fmt.Errorf("no access token: pass -token or set LEDGER_TOKEN")
	}
	conn, err := grpc.NewClient(r.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect %s: %w", r.addr, err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+r.token)
	closeFn := func() {
		cancel()
		conn.Close()
	}
	return ledgergrpc.NewLedgerClient(conn), ctx, closeFn, nil
}

// rpcFailure reports a failed call. Rejected requests exit as usage errors;
// everything else is a failure.
func rpcFailure(err error) subcommands.ExitStatus {
	err = ledgergrpc.FromStatus(err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case domain.IsClientError(err):
		return subcommands.ExitUsageError
	case domain.IsRetryable(err):
		fmt.Fprintln(os.Stderr, "The ledger is busy or unavailable, try again.")
	}
	return subcommands.ExitFailure
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseFilterFlag reads a filter written as a query string, e.g.
// "client=ACME&status=UNPAID,PARTIALLY_PAID&rest=100&rest_radius=5".
func parseFilterFlag(raw string) (ledgergrpc.FilterMessage, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ledgergrpc.FilterMessage{}, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, err)
	}
	f, err := bridge.ParseFilter(values)
	if err != nil {
		return ledgergrpc.FilterMessage{}, err
	}
	msg := ledgergrpc.FilterMessage{
		DateFrom:      f.DateFrom,
		DateTo:        f.DateTo,
		Client:        f.Client,
		Remark:        f.Remark,
		FlightSegment: f.FlightSegment,
		TicketNumber:  f.TicketNumber,
	}
	if f.Total != nil {
		msg.Total = &ledgergrpc.AmountRangeMessage{Center: f.Total.Center.String(), Radius: f.Total.Radius.String()}
	}
	if f.Rest != nil {
		msg.Rest = &ledgergrpc.AmountRangeMessage{Center: f.Rest.Center.String(), Radius: f.Rest.Radius.String()}
	}
	for _, s := range f.Statuses {
		msg.Statuses = append(msg.Statuses, int(s))
	}
	return msg, nil
}

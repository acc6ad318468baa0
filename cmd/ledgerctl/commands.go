package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	ledgergrpc "iou-ledger/internal/api/grpc"
	"iou-ledger/internal/bridge"
	"iou-ledger/internal/domain"
	"iou-ledger/internal/jobs"
)

type importCmd struct {
	remoteFlags
	owner  string
	date   string
	source string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a spreadsheet batch" }
func (*importCmd) Usage() string {
	return `import [-owner <code> -date <YYMMDD> -source <E>] <sheet.csv>

  Imports one sheet as a batch. Without -owner/-date the batch identity is read
  from a file name of the form OWNER_YYMMDD_SOURCE.csv.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	c.remoteFlags.register(f)
	f.StringVar(&c.owner, "owner", "", "owner code")
	f.StringVar(&c.date, "date", "", "issue date, YYMMDD")
	f.StringVar(&c.source, "source", string(domain.SourceSpreadsheet), "source type letter")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one sheet file is required.")
		return subcommands.ExitUsageError
	}
	path := f.Arg(0)

	header := bridge.BatchHeader{OwnerCode: c.owner, Date: c.date, SourceType: domain.SourceType(strings.ToUpper(c.source))}
	if c.owner == "" || c.date == "" {
		var err error
		if header, err = jobs.ParseInboxName(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer file.Close()
	batch, err := bridge.ReadBatch(file, header)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		return subcommands.ExitFailure
	}

	client, ctx, closeFn, err := c.dial(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	resp, err := client.ImportBatch(ctx, &ledgergrpc.ImportBatchRequest{Batch: batch})
	if err != nil {
		return rpcFailure(err)
	}
	for _, d := range resp.Debts {
		fmt.Printf("%s\t%s\t%s\n", d.ID, d.TotalAmount, d.Status)
	}
	return subcommands.ExitSuccess
}

type queryCmd struct {
	remoteFlags
	filter string
}

func (*queryCmd) Name() string     { return "query" }
func (*queryCmd) Synopsis() string { return "list debts matching a filter" }
func (*queryCmd) Usage() string {
	return `query [-filter <query-string>]

  Lists debts visible to the token's actor, e.g.
  -filter 'client=ACME&status=UNPAID&date_from=240101'.
`
}

func (c *queryCmd) SetFlags(f *flag.FlagSet) {
	c.remoteFlags.register(f)
	f.StringVar(&c.filter, "filter", "", "filter as a URL query string")
}

func (c *queryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter, err := parseFilterFlag(c.filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	client, ctx, closeFn, err := c.dial(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	resp, err := client.QueryDebts(ctx, &ledgergrpc.QueryDebtsRequest{Filter: filter})
	if err != nil {
		return rpcFailure(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ID\tDATE\tTOTAL\tPAID\tREST\tSTATUS\t")
	for _, d := range resp.Debts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", d.ID, d.IssueDate, d.TotalAmount, d.Paid, d.Rest, d.Status)
	}
	w.Flush()
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	remoteFlags
	filter string
	plain  bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show totals per status" }
func (*summaryCmd) Usage() string {
	return `summary [-filter <query-string>] [-plain]

  Prints count, total, paid and rest per status for the matching debts.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	c.remoteFlags.register(f)
	f.StringVar(&c.filter, "filter", "", "filter as a URL query string")
	f.BoolVar(&c.plain, "plain", false, "print raw markdown instead of rendering it")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter, err := parseFilterFlag(c.filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	client, ctx, closeFn, err := c.dial(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	resp, err := client.Summarize(ctx, &ledgergrpc.SummarizeRequest{Filter: filter})
	if err != nil {
		return rpcFailure(err)
	}

	md := summaryMarkdown(resp)
	if c.plain {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}

func summaryMarkdown(s *ledgergrpc.SummaryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger summary\n\n%d debts, total %s, paid %s, rest %s.\n\n", s.Count, s.Total, s.Paid, s.Rest)
	if len(s.ByStatus) == 0 {
		return b.String()
	}
	b.WriteString("| Status | Count | Total | Paid | Rest |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, st := range s.ByStatus {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s |\n", st.Status, st.Count, st.Total, st.Paid, st.Rest)
	}
	return b.String()
}

type payCmd struct {
	remoteFlags
	debt  string
	input  domain.PaymentInput
}

func (*payCmd) Name() string     { return "pay" }
func (*payCmd) Synopsis() string { return "record a payment against a debt" }
func (*payCmd) Usage() string {
	return `pay -debt <id> -payer <name> -amount <amount> -date <YYMMDD> [-remark <text>]
`
}

func (c *payCmd) SetFlags(f *flag.FlagSet) {
	c.remoteFlags.register(f)
	f.StringVar(&c.debt, "debt", "", "debt id (required)")
	f.StringVar(&c.input.PayerName, "payer", "", "payer name (required)")
	f.StringVar(&c.input.Amount, "amount", "", "amount, greater than zero (required)")
	f.StringVar(&c.input.Date, "date", "", "payment date, YYMMDD (required)")
	f.StringVar(&c.input.Remark, "remark", "", "free text")
}

func (c *payCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.debt == "" {
		fmt.Fprintln(os.Stderr, "Error: -debt is required.")
		return subcommands.ExitUsageError
	}
	if _, err := c.input.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	client, ctx, closeFn, err := c.dial(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	if _, err := client.AddPayment(ctx, &ledgergrpc.AddPaymentRequest{DebtID: c.debt, Payment: c.input}); err != nil {
		return rpcFailure(err)
	}
	debt, err := client.GetDebt(ctx, &ledgergrpc.GetDebtRequest{ID: c.debt})
	if err != nil {
		return rpcFailure(err)
	}
	fmt.Printf("%s\tpaid %s\trest %s\t%s\n", debt.Debt.ID, debt.Debt.Paid, debt.Debt.Rest, debt.Debt.Status)
	return subcommands.ExitSuccess
}

type reconcileCmd struct {
	remoteFlags
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "re-derive every debt status (admin)" }
func (*reconcileCmd) Usage() string {
	return `reconcile
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	c.remoteFlags.register(f)
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	client, ctx, closeFn, err := c.dial(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	resp, err := client.ReconcileStatuses(ctx, &ledgergrpc.ReconcileStatusesRequest{})
	if err != nil {
		return rpcFailure(err)
	}
	fmt.Printf("repaired %d debt statuses\n", resp.Repaired)
	return subcommands.ExitSuccess
}

// Command ledgerctl talks to a running ledger server over gRPC and performs
// local maintenance (migrations, token minting) against the configured store.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var commands = []subcommands.Command{
	&importCmd{},
	&queryCmd{},
	&summaryCmd{},
	&payCmd{},
	&reconcileCmd{},
	&tokenCmd{},
	&migrateCmd{},
}

// completion describes the command line for shell completion
// (COMP_INSTALL=1 ledgerctl installs it).
func completion() *complete.Command {
	remote := map[string]complete.Predictor{
		"addr":   predict.Something,
		"token":  predict.Something,
		"filter": predict.Something,
	}
	local := map[string]complete.Predictor{
		"config": predict.Files("*.yaml"),
	}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"import":    {Flags: merge(remote, map[string]complete.Predictor{"owner": predict.Something, "date": predict.Something, "source": predict.Set{"E", "S"}}), Args: predict.Files("*.csv")},
			"query":     {Flags: remote},
			"summary":   {Flags: merge(remote, map[string]complete.Predictor{"plain": predict.Nothing})},
			"pay":       {Flags: merge(remote, map[string]complete.Predictor{"debt": predict.Something, "payer": predict.Something, "amount": predict.Something, "date": predict.Something, "remark": predict.Something})},
			"reconcile": {Flags: remote},
			"token":     {Flags: merge(local, map[string]complete.Predictor{"id": predict.Something, "code": predict.Something, "role": predict.Set{"admin", "manager", "user"}})},
			"migrate":   {Flags: local},
		},
	}
}

func merge(a, b map[string]complete.Predictor) map[string]complete.Predictor {
	out := make(map[string]complete.Predictor, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func main() {
	name := path.Base(os.Args[0])
	completion().Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

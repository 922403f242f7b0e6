package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/tracker"
)

type updateCmd struct{}

func (*updateCmd) Name() string { return "update" }
func (*updateCmd) Synopsis() string {
	return "refresh the market data cache for the ledger's symbols"
}
func (*updateCmd) Usage() string {
	return `trk update

  Loads prices, dividend and split histories for every symbol in the
  user's ledger, warming the cache so later analyses run offline. Meant
  to be run from a cron job.
`
}
func (*updateCmd) SetFlags(_ *flag.FlagSet) {}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "no arguments expected")
		return subcommands.ExitUsageError
	}

	t := newTracker()
	transactions, err := t.Store.Transactions(ctx, *userFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	symbols := tracker.Symbols(transactions)

	status := subcommands.ExitSuccess
	if prices, err := t.Market.LoadPrices(ctx, symbols); err != nil {
		fmt.Fprintf(os.Stderr, "Error: prices: %v\n", err)
		status = subcommands.ExitFailure
	} else {
		fmt.Printf("prices: %d of %d symbols\n", len(prices), len(symbols))
	}
	if dividends, err := t.Market.LoadDividends(ctx, symbols); err != nil {
		fmt.Fprintf(os.Stderr, "Error: dividends: %v\n", err)
		status = subcommands.ExitFailure
	} else {
		fmt.Printf("dividends: %d symbols\n", len(dividends))
	}
	if splits, err := t.Market.LoadSplits(ctx, symbols); err != nil {
		fmt.Fprintf(os.Stderr, "Error: splits: %v\n", err)
		status = subcommands.ExitFailure
	} else {
		fmt.Printf("splits: %d symbols\n", len(splits))
	}

	return status
}

package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/tracker/renderer"
)

type analyzeCmd struct {
	account  string
	currency string
	jsonOut  bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "compute the portfolio performance report" }
func (*analyzeCmd) Usage() string {
	return `trk analyze [-account <id>] [-currency <code>] [-json]

  Analyzes the user's full transaction ledger: holdings, invested and
  withdrawn totals, dividends, current value, gain, Modified Dietz and
  annualized yields, per account and for the whole portfolio.

Usage Examples:
# Report in euros.
$ trk analyze -user alice -currency EUR

`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Report a single account instead of the whole portfolio")
	f.StringVar(&c.currency, "currency", "", "Reporting currency (ISO 4217), USD by default")
	f.BoolVar(&c.jsonOut, "json", false, "Print the raw analysis as JSON instead of a report")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "no arguments expected")
		return subcommands.ExitUsageError
	}

	result, err := newTracker().AnalyzeUser(ctx, *userFlag, c.currency)
	if result == nil {
		fmt.Fprintf(os.Stderr, "Error: could not analyze ledger for %s: %v\n", *userFlag, err)
		return subcommands.ExitFailure
	}
	if err != nil {
		// Partial market data: report what we have.
		log.Printf("warning: %v", err)
	}

	if c.account != "" {
		p, ok := result.PerAccount[c.account]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: no account %q in the ledger\n", c.account)
			return subcommands.ExitFailure
		}
		if c.jsonOut {
			return printJSON(p)
		}
		printMarkdown(renderer.PortfolioMarkdown(c.account, &p, result.Rate, result.Currency.Code))
		return subcommands.ExitSuccess
	}

	if c.jsonOut {
		return printJSON(result)
	}
	printMarkdown(renderer.UserMarkdown(result))
	return subcommands.ExitSuccess
}

func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not encode analysis: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

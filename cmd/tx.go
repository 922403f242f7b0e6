package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
)

// txCmd appends one transaction to the user's ledger.
type txCmd struct {
	txType   string
	account  string
	symbol   string
	day      string
	quantity uint64
	pps      string
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "record a transaction in the ledger" }
func (*txCmd) Usage() string {
	return `trk tx -type <buy|sell|dividend|split> -account <id> -symbol <ticker> [-date <YYYY-MM-DD>] [-quantity <n>] -pps <price>

  Appends one transaction to the user's ledger. For dividends -pps is the
  per-share payout and -quantity must be omitted; for splits -pps is the
  ratio (2 for a 2-for-1 split).

Usage Examples:
$ trk tx -type buy -account broker -symbol AAPL -quantity 10 -pps 195.30

`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.txType, "type", "buy", "Transaction type: buy, sell, dividend or split")
	f.StringVar(&c.account, "account", "", "Account the transaction belongs to")
	f.StringVar(&c.symbol, "symbol", "", "Security ticker")
	f.StringVar(&c.day, "date", date.Today().String(), "Transaction date")
	f.Uint64Var(&c.quantity, "quantity", 0, "Number of shares")
	f.StringVar(&c.pps, "pps", "", "Price per share (or payout, or split ratio)")
}

func (c *txCmd) transaction() (tracker.Transaction, error) {
	day, err := date.Parse(c.day)
	if err != nil {
		return tracker.Transaction{}, err
	}
	pps, err := decimal.NewFromString(c.pps)
	if err != nil {
		return tracker.Transaction{}, fmt.Errorf("invalid -pps %q: %w", c.pps, err)
	}
	txType, err := tracker.ParseTransactionType(c.txType)
	if err != nil {
		return tracker.Transaction{}, err
	}

	var tx tracker.Transaction
	switch txType {
	case tracker.Buy:
		tx = tracker.NewBuy(day, c.account, c.symbol, c.quantity, pps)
	case tracker.Sell:
		tx = tracker.NewSell(day, c.account, c.symbol, c.quantity, pps)
	case tracker.Dividend:
		tx = tracker.NewDividend(day, c.account, c.symbol, pps)
	case tracker.Split:
		tx = tracker.NewSplit(day, c.account, c.symbol, pps)
	}
	return tx.Validate()
}

func (c *txCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	tx, err := c.transaction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	filename := ledgerFile()
	w, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	defer w.Close()

	if err := tracker.EncodeLedger(w, []tracker.Transaction{tx}); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to ledger file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Recorded %s of %s in %s\n", tx.Type, tx.Symbol, filename)
	return subcommands.ExitSuccess
}

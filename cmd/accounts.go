package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/google/subcommands"
	md "github.com/nao1215/markdown"
)

type accountsCmd struct{}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list the user's accounts" }
func (*accountsCmd) Usage() string {
	return `trk accounts

  Lists the accounts found in the user's ledger, with their metadata
  when accounts.json provides some.
`
}

func (*accountsCmd) SetFlags(_ *flag.FlagSet) {}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store := newTracker().Store

	transactions, err := store.Transactions(ctx, *userFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	accounts, err := store.Accounts(ctx, *userFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load accounts: %v\n", err)
		return subcommands.ExitFailure
	}

	counts := make(map[string]int)
	for _, tx := range transactions {
		counts[tx.AccountID]++
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1(fmt.Sprintf("Accounts of %s", *userFlag))
	table := md.TableSet{
		Header: []string{"Account", "Name", "Institution", "Transactions"},
	}
	for _, id := range ids {
		meta := accounts[id]
		table.Rows = append(table.Rows, []string{
			id, meta.Name, meta.Institution, fmt.Sprint(counts[id]),
		})
	}
	doc.Table(table)

	printMarkdown(doc.String())
	return subcommands.ExitSuccess
}

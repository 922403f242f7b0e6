// Package cmd implements the trk CLI application.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/marketdata"
)

// Commands is the list of subcommands a main package registers.
var Commands = []subcommands.Command{
	&analyzeCmd{},
	&accountsCmd{},
	&txCmd{},
	&updateCmd{},
	&topicCmd{},
	&assistCmd{},
}

// As a CLI application it is very short lived, so global flags are fine.

var storeDir = flag.String("store", ".", "Path to the ledger store: one folder per user holding transactions.jsonl and accounts.json")
var cacheDir = flag.String("cache", defaultCacheDir(), "Path to the market data cache folder")
var userFlag = flag.String("user", defaultUser(), "User whose ledger to analyze")

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "main"
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".trk-cache"
	}
	return filepath.Join(dir, "trk")
}

// newTracker wires the file ledger store and the cached MarketStack
// provider into the analysis pipeline.
func newTracker() *tracker.Tracker {
	loader := marketdata.NewLoader(marketdata.DiskStore{Dir: *cacheDir}, marketdata.NewMarketStack())
	return tracker.New(tracker.FileLedgerStore{Dir: *storeDir}, loader)
}

// ledgerFile is the path of the current user's transactions file.
func ledgerFile() string {
	return filepath.Join(*storeDir, *userFlag, "transactions.jsonl")
}

// printMarkdown renders markdown for the terminal, falling back to the
// raw text when the terminal renderer is not available.
func printMarkdown(content string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(content)
		return
	}
	out, err := r.Render(content)
	if err != nil {
		fmt.Print(content)
		return
	}
	fmt.Print(out)
}

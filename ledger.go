package tracker

import (
	"maps"
	"slices"

	"github.com/etnz/tracker/date"
)

// This file contains the ledger utilities the analysis pipeline is built
// from: partitioning by account, symbol extraction, chronological sorting,
// and merging of market dividend and split events into a ledger.

// GroupByAccount partitions transactions by account id. Every transaction
// appears in exactly one partition, in its original relative order.
func GroupByAccount(transactions []Transaction) map[string][]Transaction {
	groups := make(map[string][]Transaction)
	for _, tx := range transactions {
		groups[tx.AccountID] = append(groups[tx.AccountID], tx)
	}
	return groups
}

// Symbols returns the sorted set of distinct symbols in the transactions.
func Symbols(transactions []Transaction) []string {
	set := make(map[string]struct{})
	for _, tx := range transactions {
		set[tx.Symbol] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// SortByDate sorts transactions by calendar date, ascending. The sort is
// stable: equal dates preserve their original relative order, which the
// first/last transaction bounds and the held-quantity replay depend on.
func SortByDate(transactions []Transaction) {
	slices.SortStableFunc(transactions, func(a, b Transaction) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		default:
			return 0
		}
	})
}

// firstDates returns for each symbol the earliest transaction date found in
// the ledger.
func firstDates(transactions []Transaction) map[string]date.Date {
	firsts := make(map[string]date.Date)
	for _, tx := range transactions {
		first, ok := firsts[tx.Symbol]
		if !ok || tx.Date.Before(first) {
			firsts[tx.Symbol] = tx.Date
		}
	}
	return firsts
}

// MergeDividends returns a new ledger with every dividend event appended as
// a synthetic dividend transaction, restricted to events dated strictly
// after the symbol's earliest transaction: a dividend paid on or before the
// first purchase date is not attributable to the position. It must run
// before SortByDate and before analysis.
func MergeDividends(transactions []Transaction, dividends map[string][]DividendEvent) []Transaction {
	merged := slices.Clone(transactions)
	firsts := firstDates(transactions)
	for symbol, first := range firsts {
		for _, event := range dividends[symbol] {
			if !event.Date.After(first) {
				continue
			}
			merged = append(merged, NewDividend(event.Date, "", symbol, event.Amount))
		}
	}
	return merged
}

// MergeSplits returns a new ledger with every split event appended as a
// synthetic split transaction, with the same cutoff rule as MergeDividends.
func MergeSplits(transactions []Transaction, splits map[string][]SplitEvent) []Transaction {
	merged := slices.Clone(transactions)
	firsts := firstDates(transactions)
	for symbol, first := range firsts {
		for _, event := range splits[symbol] {
			if !event.Date.After(first) {
				continue
			}
			merged = append(merged, NewSplit(event.Date, "", symbol, event.Factor))
		}
	}
	return merged
}

package tracker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/etnz/tracker/date"
)

// SymbolPrice holds the latest adjusted close price for a symbol.
type SymbolPrice struct {
	Symbol   string          `json:"symbol"`
	AdjClose decimal.Decimal `json:"adj_close"`
}

// DividendEvent holds the details of a dividend payment for a symbol.
type DividendEvent struct {
	Symbol string          `json:"symbol"`
	Date   date.Date       `json:"date"`
	Amount decimal.Decimal `json:"amount"` // Amount per share.
}

// SplitEvent holds the details of a stock split for a symbol.
type SplitEvent struct {
	Symbol string          `json:"symbol"`
	Date   date.Date       `json:"date"`
	Factor decimal.Decimal `json:"factor"` // e.g. 2 for a 2-for-1 split.
}

// CurrencyMetadata holds display information for a currency.
type CurrencyMetadata struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// MarketData is the market-data contract the analysis pipeline consumes.
//
// Implementations resolve batches of symbols, each batch in a single call.
// A resolution may legitimately come back partial: callers treat a missing
// symbol as "no data" rather than a failure.
type MarketData interface {
	// LoadPrices resolves the latest adjusted close for each symbol.
	LoadPrices(ctx context.Context, symbols []string) (map[string]SymbolPrice, error)
	// LoadDividends resolves the dividend history for each symbol. A symbol
	// with no dividends resolves to an empty list, not a missing entry.
	LoadDividends(ctx context.Context, symbols []string) (map[string][]DividendEvent, error)
	// LoadSplits resolves the split history for each symbol. A symbol with
	// no splits resolves to an empty list, not a missing entry.
	LoadSplits(ctx context.Context, symbols []string) (map[string][]SplitEvent, error)
	// LoadRate resolves the exchange rate from the base currency (USD) to
	// the given currency code.
	LoadRate(ctx context.Context, currency string) (decimal.Decimal, error)
	// LoadCurrency resolves display metadata for the given currency code.
	LoadCurrency(ctx context.Context, code string) (CurrencyMetadata, error)
}

package marketdata

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/etnz/tracker"
)

// Provider is the upstream market-data contract. Every method resolves a
// whole batch in a single upstream call; a symbol the provider has no data
// for is simply absent from the returned map.
//
// Implementations wrap network failures in ErrUpstreamUnavailable and
// schema mismatches in ErrMalformedPayload.
type Provider interface {
	// FetchPrices returns the latest adjusted close per symbol.
	FetchPrices(ctx context.Context, symbols []string) (map[string]tracker.SymbolPrice, error)
	// FetchDividends returns the dividend events per symbol.
	FetchDividends(ctx context.Context, symbols []string) (map[string][]tracker.DividendEvent, error)
	// FetchSplits returns the split events per symbol.
	FetchSplits(ctx context.Context, symbols []string) (map[string][]tracker.SplitEvent, error)
	// FetchRates returns the rate from base to each requested currency code.
	FetchRates(ctx context.Context, base string, currencies []string) (map[string]decimal.Decimal, error)
	// FetchCurrencies returns display metadata for all known currencies.
	FetchCurrencies(ctx context.Context) (map[string]tracker.CurrencyMetadata, error)
}

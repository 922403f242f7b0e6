package tracker

import (
	"context"
	"log"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency all ledger amounts are recorded in.
const BaseCurrency = "USD"

// CurrencyConverter resolves an exchange rate and display metadata for a
// reporting currency through the market-data layer.
//
// Conversion is strictly cosmetic, so resolution never fails: any error
// falls back to a rate of 1 and to the go-money registry for metadata, and
// is only logged.
type CurrencyConverter struct {
	Market MarketData
}

// Resolve returns the rate from the base currency to code and the display
// metadata for code. An empty code or the base currency itself resolves to
// a rate of 1.
func (c CurrencyConverter) Resolve(ctx context.Context, code string) (decimal.Decimal, CurrencyMetadata) {
	if code == "" {
		code = BaseCurrency
	}
	metadata := defaultCurrencyMetadata(code)
	rate := decimal.NewFromInt(1)
	if code == BaseCurrency {
		return rate, metadata
	}

	r, err := c.Market.LoadRate(ctx, code)
	if err != nil {
		log.Printf("could not resolve %s/%s rate, falling back to 1: %v", BaseCurrency, code, err)
		return rate, metadata
	}
	rate = r

	m, err := c.Market.LoadCurrency(ctx, code)
	if err != nil {
		log.Printf("could not resolve %s metadata, falling back to registry: %v", code, err)
		return rate, metadata
	}
	return rate, m
}

// defaultCurrencyMetadata builds metadata from the go-money currency
// registry. An unknown code falls back to the code itself as symbol.
func defaultCurrencyMetadata(code string) CurrencyMetadata {
	cur := money.GetCurrency(code)
	if cur == nil {
		return CurrencyMetadata{Code: code, Symbol: code, Name: code}
	}
	return CurrencyMetadata{Code: cur.Code, Symbol: cur.Grapheme, Name: cur.Code}
}

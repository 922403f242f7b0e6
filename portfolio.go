package tracker

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a return ratio (e.g. 0.05 for 5%).
type Percent float64

// Equal compares two percents with a fixed precision.
func (p Percent) Equal(q Percent) bool {
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p)*100)
}

// AnalyzedPortfolio is the result of analyzing one transaction sequence,
// either a single account or a whole ledger. It is rebuilt from scratch on
// every analysis call and never persisted.
type AnalyzedPortfolio struct {
	// Symbols is the sorted set of all symbols touched by the ledger,
	// whether or not a price was available for them.
	Symbols []string `json:"symbols"`
	// Shares is the final held quantity per symbol, split-adjusted.
	Shares map[string]decimal.Decimal `json:"shares"`
	// AvgPPS is the average purchase price per share, per symbol.
	AvgPPS map[string]decimal.Decimal `json:"avg_pps"`

	TotalInvested  decimal.Decimal `json:"total_invested"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	TotalDividends decimal.Decimal `json:"total_dividends"`

	CurrentPortfolioValue decimal.Decimal `json:"current_portfolio_value"`

	// PortfolioGain is the gain as a fraction of the invested amount,
	// PortfolioGainValue the same gain in cash terms.
	PortfolioGain      Percent         `json:"portfolio_gain"`
	PortfolioGainValue decimal.Decimal `json:"portfolio_gain_value"`
	ModifiedDietzYield Percent         `json:"modified_dietz_yield"`
	AnnualizedYield    Percent         `json:"annualized_yield"`

	FirstTransaction Transaction `json:"first_transaction"`
	LastTransaction  Transaction `json:"last_transaction"`

	// ExchangeRate is the rate to the requested reporting currency,
	// 1 when no conversion was requested or resolution failed.
	ExchangeRate decimal.Decimal `json:"exchange_rate"`

	// MissingPrices lists symbols that had transactions but no price entry.
	// Their transactions are excluded from valuation only; totals still
	// include them.
	MissingPrices []string `json:"missing_prices,omitempty"`
}

// NewAnalyzedPortfolio returns an empty portfolio with all totals at zero
// and the exchange rate at 1.
func NewAnalyzedPortfolio() AnalyzedPortfolio {
	return AnalyzedPortfolio{
		Symbols:      []string{},
		Shares:       make(map[string]decimal.Decimal),
		AvgPPS:       make(map[string]decimal.Decimal),
		ExchangeRate: decimal.NewFromInt(1),
	}
}

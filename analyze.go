package tracker

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/etnz/tracker/date"
)

// daysPerYear is the day-count convention used to annualize yields.
const daysPerYear = 365

// foldShardSize is the number of transactions each parallel fold shard
// processes. Ledgers smaller than two shards are folded sequentially.
const foldShardSize = 512

// Analyze computes the portfolio metrics for a transaction sequence as of
// today. See AnalyzeOn.
func Analyze(transactions []Transaction, prices map[string]SymbolPrice) (AnalyzedPortfolio, error) {
	return AnalyzeOn(date.Today(), transactions, prices)
}

// AnalyzeOn folds a chronologically sorted, dividend-merged transaction
// sequence into an AnalyzedPortfolio, valuing positions with the given
// latest adjusted close prices.
//
// The sequence must be sorted by date (SortByDate) before calling: the
// held-quantity replay and the first/last transaction bounds depend on it.
// A transaction whose symbol has no price entry is excluded from valuation
// only; it still counts towards invested and withdrawn totals and is
// reported in MissingPrices.
//
// An empty sequence yields a zero-valued portfolio and no error. When the
// annualized yield is mathematically undefined (non-positive growth factor
// raised to a fractional exponent) the portfolio is still returned in full,
// with a zero annualized yield, together with an error wrapping
// ErrUndefinedYield.
func AnalyzeOn(today date.Date, transactions []Transaction, prices map[string]SymbolPrice) (AnalyzedPortfolio, error) {
	p := NewAnalyzedPortfolio()
	if len(transactions) == 0 {
		return p, nil
	}

	p.FirstTransaction = transactions[0]
	p.LastTransaction = transactions[len(transactions)-1]
	days := today.Sub(p.FirstTransaction.Date)

	// The held-quantity replay is inherently sequential: the position at a
	// dividend event depends on every prior buy, sell and split of that
	// symbol. It must complete before any parallel fold.
	heldBefore, shares, avg := replay(transactions)
	p.Shares = shares
	p.AvgPPS = avg

	t := fold(today, days, transactions, heldBefore, prices)

	p.Symbols = slices.Sorted(maps.Keys(t.symbols))
	p.MissingPrices = slices.Sorted(maps.Keys(t.missing))
	p.TotalInvested = t.invested
	p.TotalWithdrawn = t.withdrawn
	p.TotalDividends = t.dividends
	for _, v := range t.value {
		p.CurrentPortfolioValue = p.CurrentPortfolioValue.Add(v)
	}

	p.PortfolioGainValue = p.CurrentPortfolioValue.Add(p.TotalWithdrawn).Add(p.TotalDividends).Sub(p.TotalInvested)
	if !p.TotalInvested.IsZero() {
		p.PortfolioGain = Percent(p.PortfolioGainValue.Div(p.TotalInvested).InexactFloat64())
	}

	if days <= 0 {
		// Degenerate single-day ledger: yields stay zero.
		return p, nil
	}

	if denom := p.TotalInvested.Add(t.cashFlow); !denom.IsZero() {
		p.ModifiedDietzYield = Percent(p.PortfolioGainValue.Div(denom).InexactFloat64())
	}

	// annualized = (1+gain)^(365/days) - 1. A non-positive base under a
	// fractional exponent has no real value: report it instead of letting
	// a NaN propagate.
	base := 1 + float64(p.PortfolioGain)
	if base <= 0 {
		return p, fmt.Errorf("cannot annualize gain %v over %d days: %w", p.PortfolioGain, days, ErrUndefinedYield)
	}
	p.AnnualizedYield = Percent(math.Pow(base, daysPerYear/float64(days)) - 1)

	return p, nil
}

// replay scans the sequence chronologically once, resolving for each
// transaction the quantity of its symbol held just before it applies. It
// also produces the final split-adjusted position and the average purchase
// price per symbol.
func replay(transactions []Transaction) (heldBefore []decimal.Decimal, shares, avg map[string]decimal.Decimal) {
	heldBefore = make([]decimal.Decimal, len(transactions))
	shares = make(map[string]decimal.Decimal)
	avg = make(map[string]decimal.Decimal)

	for i, tx := range transactions {
		held := shares[tx.Symbol]
		heldBefore[i] = held
		switch tx.Type {
		case Buy:
			total := held.Add(tx.qty())
			if total.IsPositive() {
				avg[tx.Symbol] = avg[tx.Symbol].Mul(held).Add(tx.amount()).Div(total)
			}
			shares[tx.Symbol] = total
		case Sell:
			shares[tx.Symbol] = held.Sub(tx.qty())
		case Split:
			shares[tx.Symbol] = held.Mul(tx.PPS)
		}
	}
	return heldBefore, shares, avg
}

// totals is one shard's accumulator. Shards merge by scalar addition and
// key-wise map addition, so the fold is associative and safe to combine in
// any order.
type totals struct {
	invested  decimal.Decimal
	withdrawn decimal.Decimal
	dividends decimal.Decimal
	cashFlow  decimal.Decimal
	value     map[string]decimal.Decimal
	symbols   map[string]struct{}
	missing   map[string]struct{}
}

func newTotals() *totals {
	return &totals{
		value:   make(map[string]decimal.Decimal),
		symbols: make(map[string]struct{}),
		missing: make(map[string]struct{}),
	}
}

// accumulate applies one transaction to the shard, heldBefore being the
// quantity of the transaction's symbol held just before it.
func (t *totals) accumulate(today date.Date, days int, tx Transaction, heldBefore decimal.Decimal, prices map[string]SymbolPrice) {
	t.symbols[tx.Symbol] = struct{}{}

	price, priced := prices[tx.Symbol]
	if !priced {
		t.missing[tx.Symbol] = struct{}{}
	}

	// Each cash flow is weighted by the fraction of the period it was
	// outstanding (Modified Dietz).
	weight := func(amount decimal.Decimal) decimal.Decimal {
		if days <= 0 {
			return decimal.Zero
		}
		sinceTx := today.Sub(tx.Date)
		return amount.Mul(decimal.NewFromInt(int64(sinceTx))).Div(decimal.NewFromInt(int64(days)))
	}

	switch tx.Type {
	case Buy:
		t.invested = t.invested.Add(tx.amount())
		t.cashFlow = t.cashFlow.Add(weight(tx.amount()))
		if priced {
			t.value[tx.Symbol] = t.value[tx.Symbol].Add(tx.qty().Mul(price.AdjClose))
		}
	case Sell:
		t.withdrawn = t.withdrawn.Add(tx.amount())
		t.cashFlow = t.cashFlow.Sub(weight(tx.amount()))
		if priced {
			t.value[tx.Symbol] = t.value[tx.Symbol].Sub(tx.qty().Mul(price.AdjClose))
		}
	case Dividend:
		// The payout is amount per share times the position held on the
		// event date; the row's own quantity is always 0.
		payout := tx.PPS.Mul(heldBefore)
		t.dividends = t.dividends.Add(payout)
		t.cashFlow = t.cashFlow.Sub(weight(payout))
	case Split:
		// Position change only, already handled by the replay pre-pass.
	}
}

// merge folds another shard into t.
func (t *totals) merge(o *totals) {
	t.invested = t.invested.Add(o.invested)
	t.withdrawn = t.withdrawn.Add(o.withdrawn)
	t.dividends = t.dividends.Add(o.dividends)
	t.cashFlow = t.cashFlow.Add(o.cashFlow)
	for symbol, v := range o.value {
		t.value[symbol] = t.value[symbol].Add(v)
	}
	maps.Copy(t.symbols, o.symbols)
	maps.Copy(t.missing, o.missing)
}

// fold accumulates the scalar totals and the per-symbol value map. With the
// held quantities pre-resolved the fold is associative, so large sequences
// are sharded across goroutines and the shard results merged.
func fold(today date.Date, days int, transactions []Transaction, heldBefore []decimal.Decimal, prices map[string]SymbolPrice) *totals {
	if len(transactions) < 2*foldShardSize {
		t := newTotals()
		for i, tx := range transactions {
			t.accumulate(today, days, tx, heldBefore[i], prices)
		}
		return t
	}

	shards := (len(transactions) + foldShardSize - 1) / foldShardSize
	parts := make([]*totals, shards)
	var wg sync.WaitGroup
	for s := range shards {
		lo := s * foldShardSize
		hi := min(lo+foldShardSize, len(transactions))
		wg.Add(1)
		go func(s, lo, hi int) {
			defer wg.Done()
			t := newTotals()
			for i := lo; i < hi; i++ {
				t.accumulate(today, days, transactions[i], heldBefore[i], prices)
			}
			parts[s] = t
		}(s, lo, hi)
	}
	wg.Wait()

	t := parts[0]
	for _, part := range parts[1:] {
		t.merge(part)
	}
	return t
}

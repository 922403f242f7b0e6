package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"
)

// AggregateID is the key under which the whole-ledger analysis is reported,
// next to the per-account results.
const AggregateID = "total"

// LedgerStore is the storage contract the orchestrator consumes. Query
// mechanics, schema and durability belong to the implementation.
type LedgerStore interface {
	// Transactions returns the user's full ledger, in no particular order.
	Transactions(ctx context.Context, userID string) ([]Transaction, error)
	// Accounts returns the user's account metadata, keyed by account id.
	Accounts(ctx context.Context, userID string) (map[string]AccountMetadata, error)
}

// UserPortfolio is the assembled analysis for one user: the per-account
// results, the whole-ledger aggregate under AggregateID, and the resolved
// reporting currency.
type UserPortfolio struct {
	Accounts   map[string]AccountMetadata   `json:"accounts"`
	PerAccount map[string]AnalyzedPortfolio `json:"analysis"`
	Rate       decimal.Decimal              `json:"exchange_rate"`
	Currency   CurrencyMetadata             `json:"currency"`
}

// Aggregate returns the whole-ledger analysis.
func (u *UserPortfolio) Aggregate() AnalyzedPortfolio { return u.PerAccount[AggregateID] }

// Tracker composes the ledger store and the market-data layer into the
// per-user analysis pipeline.
type Tracker struct {
	Store  LedgerStore
	Market MarketData
}

// New creates a Tracker from its two collaborators.
func New(store LedgerStore, market MarketData) *Tracker {
	return &Tracker{Store: store, Market: market}
}

// AnalyzeUser loads the user's ledger and account metadata, resolves market
// data for the ledger's symbol set, and analyzes each account and the whole
// ledger.
//
// Market-data resolution is tolerant: a partially resolved batch degrades
// the affected symbols to "no data" instead of failing the request. The
// returned error, when the result is non-nil, joins the soft failures
// encountered on the way (partial market data, undefined yields); callers
// may log it and still serve the analysis.
func (t *Tracker) AnalyzeUser(ctx context.Context, userID, currency string) (*UserPortfolio, error) {
	transactions, err := t.Store.Transactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load ledger for user %s: %w", userID, err)
	}
	accounts, err := t.Store.Accounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load accounts for user %s: %w", userID, err)
	}

	symbols := Symbols(transactions)

	// The three market buckets are independent, resolve them in parallel.
	// A failed batch still yields its cache-resolved subset.
	var prices map[string]SymbolPrice
	var dividends map[string][]DividendEvent
	var splits map[string][]SplitEvent
	var perr, derr, serr error
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); prices, perr = t.Market.LoadPrices(ctx, symbols) }()
	go func() { defer wg.Done(); dividends, derr = t.Market.LoadDividends(ctx, symbols) }()
	go func() { defer wg.Done(); splits, serr = t.Market.LoadSplits(ctx, symbols) }()
	wg.Wait()

	soft := errors.Join(perr, derr, serr)
	if soft != nil {
		log.Printf("partial market data for user %s: %v", userID, soft)
	}

	rate, metadata := CurrencyConverter{Market: t.Market}.Resolve(ctx, currency)

	result := &UserPortfolio{
		Accounts:   accounts,
		PerAccount: make(map[string]AnalyzedPortfolio, len(accounts)+1),
		Rate:       rate,
		Currency:   metadata,
	}

	// Per-account analyses are independent; each one works on its own
	// partition and reports into the shared map under the lock.
	groups := GroupByAccount(transactions)
	groups[AggregateID] = transactions

	var mu sync.Mutex
	for id, group := range groups {
		wg.Add(1)
		go func(id string, group []Transaction) {
			defer wg.Done()
			p, err := t.analyze(group, prices, dividends, splits, rate)
			mu.Lock()
			defer mu.Unlock()
			result.PerAccount[id] = p
			if err != nil {
				soft = errors.Join(soft, fmt.Errorf("account %s: %w", id, err))
			}
		}(id, group)
	}
	wg.Wait()

	return result, soft
}

// analyze runs the pipeline for one transaction partition: merge market
// dividend and split events, sort, fold.
func (t *Tracker) analyze(transactions []Transaction, prices map[string]SymbolPrice, dividends map[string][]DividendEvent, splits map[string][]SplitEvent, rate decimal.Decimal) (AnalyzedPortfolio, error) {
	merged := MergeDividends(transactions, dividends)
	merged = MergeSplits(merged, splits)
	SortByDate(merged)

	p, err := Analyze(merged, prices)
	p.ExchangeRate = rate
	return p, err
}

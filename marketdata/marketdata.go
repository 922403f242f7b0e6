// Package marketdata resolves batches of symbols against a durable cache
// with partial-hit reconciliation against an upstream provider.
//
// Data lives in logical buckets (prices, dividends, splits, rates, currency
// metadata), one JSON document per bucket keyed by symbol or currency code,
// every entry carrying its own expiry. A load call reads the bucket, fetches
// only the expired or absent keys from the provider in one batch call, and
// writes the merged document back with the bucket's time-to-live. A fully
// cached load makes zero upstream calls.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etnz/tracker"
)

// Bucket keys of the cache documents.
const (
	PricesBucket     = "prices"
	DividendsBucket  = "dividends"
	SplitsBucket     = "splits"
	RatesBucket      = "rates"
	CurrenciesBucket = "currencies_metadata"
)

// Time-to-live per bucket. Prices move daily, dividend and split histories
// barely move, currency metadata is effectively static.
const (
	PricesTTL     = 12 * time.Hour
	DividendsTTL  = 3 * 24 * time.Hour
	SplitsTTL     = 3 * 24 * time.Hour
	RatesTTL      = 24 * time.Hour
	CurrenciesTTL = 30 * 24 * time.Hour
)

// entry is one cached value inside a bucket document.
type entry struct {
	Expires int64           `json:"expires"` // Unix seconds.
	Value   json.RawMessage `json:"value"`
}

// document is a decoded bucket: symbol (or currency code) to entry.
type document map[string]entry

// Loader is the cache-aside market-data layer: an in-memory read-through
// tier in front of a durable Store, reconciling misses against an upstream
// Provider. It implements tracker.MarketData.
//
// A per-bucket mutex protects only the in-memory decode and encode steps;
// it is never held across store or provider I/O, so concurrent loads are
// not serialized behind a slow upstream fetch.
type Loader struct {
	store    Store
	provider Provider
	now      func() time.Time

	mu     sync.Mutex // guards locks and memory
	locks  map[string]*sync.Mutex
	memory map[string]document
}

// NewLoader creates a Loader over the given durable store and upstream
// provider.
func NewLoader(store Store, provider Provider) *Loader {
	return &Loader{
		store:    store,
		provider: provider,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
		memory:   make(map[string]document),
	}
}

var _ tracker.MarketData = (*Loader)(nil)

// LoadPrices implements tracker.MarketData. Symbols the provider does not
// quote stay unresolved; the analysis layer degrades them to "no data".
func (l *Loader) LoadPrices(ctx context.Context, symbols []string) (map[string]tracker.SymbolPrice, error) {
	return resolve(ctx, l, PricesBucket, PricesTTL, symbols, nil, func(ctx context.Context, missing []string) (map[string]tracker.SymbolPrice, error) {
		return l.provider.FetchPrices(ctx, missing)
	})
}

// LoadDividends implements tracker.MarketData. A symbol the provider did
// not answer is recorded as an explicit empty history, so a later load
// treats it as resolved instead of re-fetching forever.
func (l *Loader) LoadDividends(ctx context.Context, symbols []string) (map[string][]tracker.DividendEvent, error) {
	none := func() []tracker.DividendEvent { return []tracker.DividendEvent{} }
	return resolve(ctx, l, DividendsBucket, DividendsTTL, symbols, none, func(ctx context.Context, missing []string) (map[string][]tracker.DividendEvent, error) {
		return l.provider.FetchDividends(ctx, missing)
	})
}

// LoadSplits implements tracker.MarketData, with the same empty-history
// rule as LoadDividends.
func (l *Loader) LoadSplits(ctx context.Context, symbols []string) (map[string][]tracker.SplitEvent, error) {
	none := func() []tracker.SplitEvent { return []tracker.SplitEvent{} }
	return resolve(ctx, l, SplitsBucket, SplitsTTL, symbols, none, func(ctx context.Context, missing []string) (map[string][]tracker.SplitEvent, error) {
		return l.provider.FetchSplits(ctx, missing)
	})
}

// LoadRate implements tracker.MarketData.
func (l *Loader) LoadRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	rates, err := resolve(ctx, l, RatesBucket, RatesTTL, []string{currency}, nil, func(ctx context.Context, missing []string) (map[string]decimal.Decimal, error) {
		return l.provider.FetchRates(ctx, tracker.BaseCurrency, missing)
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	rate, ok := rates[currency]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no %s/%s rate: %w", tracker.BaseCurrency, currency, ErrNotFound)
	}
	return rate, nil
}

// LoadCurrency implements tracker.MarketData. The provider returns the
// whole currency registry in one call, so a single miss warms the entire
// bucket.
func (l *Loader) LoadCurrency(ctx context.Context, code string) (tracker.CurrencyMetadata, error) {
	currencies, err := resolve(ctx, l, CurrenciesBucket, CurrenciesTTL, []string{code}, nil, func(ctx context.Context, _ []string) (map[string]tracker.CurrencyMetadata, error) {
		return l.provider.FetchCurrencies(ctx)
	})
	if err != nil {
		return tracker.CurrencyMetadata{}, err
	}
	metadata, ok := currencies[code]
	if !ok {
		return tracker.CurrencyMetadata{}, fmt.Errorf("unknown currency %q: %w", code, ErrNotFound)
	}
	return metadata, nil
}

// resolve is the cache-aside step shared by all buckets:
//
//  1. read the bucket document (memory tier, then durable store); keys
//     present and unexpired are resolved, the rest are missing
//  2. nothing missing: return, zero upstream calls
//  3. fetch only the missing keys from the provider in one batch call
//  4. merge; when absent is non-nil, record its value for every missing
//     key the provider did not answer. Entries fetched beyond the
//     requested keys are cached but not returned
//  5. write the merged document back with the bucket ttl, skipped on a
//     pure cache hit
//
// On a fetch failure the cache-resolved subset is returned together with
// the typed error, so a caller that tolerates partial data can proceed.
// Each requested key is processed once per call.
func resolve[T any](ctx context.Context, l *Loader, bucket string, ttl time.Duration, keys []string, absent func() T, fetch func(context.Context, []string) (map[string]T, error)) (map[string]T, error) {
	now := l.now().Unix()
	doc := l.bucket(ctx, bucket)

	resolved := make(map[string]T, len(keys))
	var missing []string
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		e, ok := doc[key]
		if !ok || e.Expires <= now {
			missing = append(missing, key)
			continue
		}
		var value T
		if err := json.Unmarshal(e.Value, &value); err != nil {
			// A corrupt entry is just a miss, it will be re-fetched.
			log.Printf("corrupt cache entry %s/%s, refetching: %v", bucket, key, err)
			missing = append(missing, key)
			continue
		}
		resolved[key] = value
	}

	if len(missing) == 0 {
		return resolved, nil
	}
	slices.Sort(missing)

	fetched, err := fetch(ctx, missing)
	if err != nil {
		return resolved, fmt.Errorf("bucket %s: %w", bucket, err)
	}

	updates := make(document, len(missing))
	for _, key := range missing {
		value, ok := fetched[key]
		if !ok {
			if absent == nil {
				continue
			}
			value = absent()
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return resolved, fmt.Errorf("bucket %s: cannot encode entry %q: %w", bucket, key, err)
		}
		resolved[key] = value
		updates[key] = entry{Expires: now + int64(ttl.Seconds()), Value: raw}
	}

	// Entries the provider returned beyond the requested keys were paid for
	// in the same batch call, cache them too. This is how a single currency
	// miss warms the whole registry.
	for key, value := range fetched {
		if _, ok := updates[key]; ok {
			continue
		}
		if _, ok := resolved[key]; ok {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return resolved, fmt.Errorf("bucket %s: cannot encode entry %q: %w", bucket, key, err)
		}
		updates[key] = entry{Expires: now + int64(ttl.Seconds()), Value: raw}
	}

	if len(updates) > 0 {
		l.write(ctx, bucket, ttl, updates)
	}
	return resolved, nil
}

// bucketLock returns the mutex dedicated to a bucket.
func (l *Loader) bucketLock(bucket string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[bucket]
	if !ok {
		lock = new(sync.Mutex)
		l.locks[bucket] = lock
	}
	return lock
}

// bucket returns a snapshot of the decoded bucket document, reading through
// to the durable store when the memory tier has no copy. A store failure is
// an unconditional miss, never fatal.
func (l *Loader) bucket(ctx context.Context, bucket string) document {
	lock := l.bucketLock(bucket)

	lock.Lock()
	doc, ok := l.memory[bucket]
	if ok {
		snapshot := maps.Clone(doc)
		lock.Unlock()
		return snapshot
	}
	lock.Unlock()

	// Miss in the memory tier: hit the durable store, outside the lock.
	raw, err := l.store.Get(ctx, bucket)
	if err != nil {
		log.Printf("cache store miss for bucket %s: %v", bucket, err)
	}

	lock.Lock()
	defer lock.Unlock()
	doc = make(document)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Printf("corrupt cache document %s, dropping: %v", bucket, err)
			doc = make(document)
		}
	}
	l.memory[bucket] = doc
	return maps.Clone(doc)
}

// write merges updates into the bucket and persists the full merged
// document. Encoding happens under the bucket lock, the store write does
// not; a write failure only costs a future re-fetch.
func (l *Loader) write(ctx context.Context, bucket string, ttl time.Duration, updates document) {
	lock := l.bucketLock(bucket)

	lock.Lock()
	merged := maps.Clone(l.memory[bucket])
	if merged == nil {
		merged = make(document)
	}
	maps.Copy(merged, updates)
	l.memory[bucket] = merged
	raw, err := json.Marshal(merged)
	lock.Unlock()

	if err != nil {
		log.Printf("cannot encode cache document %s (ignored): %v", bucket, err)
		return
	}
	if err := l.store.Set(ctx, bucket, raw, ttl); err != nil {
		log.Printf("cache write err (ignored): %v", err)
	}
}

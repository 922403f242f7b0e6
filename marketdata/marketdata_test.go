package marketdata

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
)

// fakeProvider records every batch it is asked for and serves canned data.
type fakeProvider struct {
	prices    map[string]tracker.SymbolPrice
	dividends map[string][]tracker.DividendEvent
	splits    map[string][]tracker.SplitEvent
	rates     map[string]decimal.Decimal
	err       error

	priceCalls    [][]string
	dividendCalls [][]string
	rateCalls     [][]string
	currencyCalls int
}

func (p *fakeProvider) FetchPrices(_ context.Context, symbols []string) (map[string]tracker.SymbolPrice, error) {
	p.priceCalls = append(p.priceCalls, slices.Clone(symbols))
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]tracker.SymbolPrice)
	for _, s := range symbols {
		if price, ok := p.prices[s]; ok {
			out[s] = price
		}
	}
	return out, nil
}

func (p *fakeProvider) FetchDividends(_ context.Context, symbols []string) (map[string][]tracker.DividendEvent, error) {
	p.dividendCalls = append(p.dividendCalls, slices.Clone(symbols))
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string][]tracker.DividendEvent)
	for _, s := range symbols {
		if events, ok := p.dividends[s]; ok {
			out[s] = events
		}
	}
	return out, nil
}

func (p *fakeProvider) FetchSplits(_ context.Context, symbols []string) (map[string][]tracker.SplitEvent, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string][]tracker.SplitEvent)
	for _, s := range symbols {
		if events, ok := p.splits[s]; ok {
			out[s] = events
		}
	}
	return out, nil
}

func (p *fakeProvider) FetchRates(_ context.Context, base string, currencies []string) (map[string]decimal.Decimal, error) {
	p.rateCalls = append(p.rateCalls, slices.Clone(currencies))
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]decimal.Decimal)
	for _, c := range currencies {
		if rate, ok := p.rates[c]; ok {
			out[c] = rate
		}
	}
	return out, nil
}

func (p *fakeProvider) FetchCurrencies(_ context.Context) (map[string]tracker.CurrencyMetadata, error) {
	p.currencyCalls++
	if p.err != nil {
		return nil, p.err
	}
	return map[string]tracker.CurrencyMetadata{
		"USD": {Code: "USD", Symbol: "$", Name: "US Dollar"},
		"EUR": {Code: "EUR", Symbol: "€", Name: "Euro"},
	}, nil
}

func price(v string) tracker.SymbolPrice {
	return tracker.SymbolPrice{AdjClose: decimal.RequireFromString(v)}
}

func newTestLoader(p Provider) *Loader {
	return NewLoader(NewMemStore(), p)
}

func TestLoadPricesFetchesAndCaches(t *testing.T) {
	provider := &fakeProvider{prices: map[string]tracker.SymbolPrice{
		"AAPL": price("150"),
		"GOOG": price("2800"),
	}}
	l := newTestLoader(provider)
	ctx := context.Background()

	got, err := l.LoadPrices(ctx, []string{"AAPL", "GOOG"})
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if len(got) != 2 || !got["AAPL"].AdjClose.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected prices: %v", got)
	}
	if len(provider.priceCalls) != 1 {
		t.Fatalf("want 1 upstream call, got %d", len(provider.priceCalls))
	}

	// Everything is cached now: a second load makes zero upstream calls.
	again, err := l.LoadPrices(ctx, []string{"AAPL", "GOOG"})
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if len(provider.priceCalls) != 1 {
		t.Fatalf("want no further upstream calls, got %d", len(provider.priceCalls))
	}
	if !reflect.DeepEqual(got, again) {
		t.Errorf("cached load differs: %v vs %v", got, again)
	}
}

func TestLoadPricesPartialHitFetchesOnlyMissing(t *testing.T) {
	provider := &fakeProvider{prices: map[string]tracker.SymbolPrice{
		"AAPL": price("150"),
		"GOOG": price("2800"),
	}}
	l := newTestLoader(provider)
	ctx := context.Background()

	if _, err := l.LoadPrices(ctx, []string{"AAPL"}); err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if _, err := l.LoadPrices(ctx, []string{"AAPL", "GOOG"}); err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}

	want := [][]string{{"AAPL"}, {"GOOG"}}
	if !reflect.DeepEqual(provider.priceCalls, want) {
		t.Errorf("upstream batches = %v, want %v", provider.priceCalls, want)
	}
}

func TestLoadPricesDedupsRequestedSymbols(t *testing.T) {
	provider := &fakeProvider{prices: map[string]tracker.SymbolPrice{"AAPL": price("150")}}
	l := newTestLoader(provider)

	got, err := l.LoadPrices(context.Background(), []string{"AAPL", "AAPL", "AAPL"})
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("want 1 resolved symbol, got %v", got)
	}
	if want := [][]string{{"AAPL"}}; !reflect.DeepEqual(provider.priceCalls, want) {
		t.Errorf("upstream batches = %v, want %v", provider.priceCalls, want)
	}
}

func TestLoadPricesUnquotedSymbolStaysUnresolved(t *testing.T) {
	provider := &fakeProvider{prices: map[string]tracker.SymbolPrice{"AAPL": price("150")}}
	l := newTestLoader(provider)
	ctx := context.Background()

	got, err := l.LoadPrices(ctx, []string{"AAPL", "NOPE"})
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if _, ok := got["NOPE"]; ok {
		t.Errorf("unquoted symbol should be absent from the result: %v", got)
	}

	// Prices carry no explicit absence marker, so the unquoted symbol is
	// asked for again on the next load.
	if _, err := l.LoadPrices(ctx, []string{"AAPL", "NOPE"}); err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if want := [][]string{{"AAPL", "NOPE"}, {"NOPE"}}; !reflect.DeepEqual(provider.priceCalls, want) {
		t.Errorf("upstream batches = %v, want %v", provider.priceCalls, want)
	}
}

// eagerProvider answers every price batch with its whole book, the way
// registry-style endpoints return more than was asked for.
type eagerProvider struct {
	fakeProvider
}

func (p *eagerProvider) FetchPrices(_ context.Context, symbols []string) (map[string]tracker.SymbolPrice, error) {
	p.priceCalls = append(p.priceCalls, slices.Clone(symbols))
	out := make(map[string]tracker.SymbolPrice, len(p.prices))
	for s, price := range p.prices {
		out[s] = price
	}
	return out, nil
}

func TestLoadPricesCachesExtraFetchedEntries(t *testing.T) {
	provider := &eagerProvider{fakeProvider{prices: map[string]tracker.SymbolPrice{
		"AAPL": price("150"),
		"GOOG": price("2800"),
	}}}
	l := NewLoader(NewMemStore(), provider)
	ctx := context.Background()

	got, err := l.LoadPrices(ctx, []string{"AAPL"})
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if _, ok := got["GOOG"]; ok {
		t.Errorf("unrequested symbol must not be in the result: %v", got)
	}

	// The over-answered entry was cached: loading it is a pure hit.
	got, err = l.LoadPrices(ctx, []string{"GOOG"})
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if !got["GOOG"].AdjClose.Equal(decimal.NewFromInt(2800)) {
		t.Errorf("unexpected price: %v", got)
	}
	if len(provider.priceCalls) != 1 {
		t.Errorf("want 1 upstream call, got %d", len(provider.priceCalls))
	}
}

func TestLoadDividendsRecordsEmptyHistory(t *testing.T) {
	provider := &fakeProvider{dividends: map[string][]tracker.DividendEvent{
		"AAPL": {{Symbol: "AAPL", Date: date.New(2024, time.March, 15), Amount: decimal.RequireFromString("0.24")}},
	}}
	l := newTestLoader(provider)
	ctx := context.Background()

	got, err := l.LoadDividends(ctx, []string{"AAPL", "QUIET"})
	if err != nil {
		t.Fatalf("LoadDividends: %v", err)
	}
	if len(got["AAPL"]) != 1 {
		t.Errorf("want 1 dividend for AAPL, got %v", got["AAPL"])
	}
	if events, ok := got["QUIET"]; !ok || len(events) != 0 {
		t.Errorf("want explicit empty history for QUIET, got %v ok=%v", events, ok)
	}

	// The empty history is cached like any other entry: no re-fetch.
	if _, err := l.LoadDividends(ctx, []string{"AAPL", "QUIET"}); err != nil {
		t.Fatalf("LoadDividends: %v", err)
	}
	if len(provider.dividendCalls) != 1 {
		t.Errorf("want 1 upstream call, got %d", len(provider.dividendCalls))
	}
}

func TestLoadPricesExpiredEntryIsRefetched(t *testing.T) {
	provider := &fakeProvider{prices: map[string]tracker.SymbolPrice{"AAPL": price("150")}}
	l := newTestLoader(provider)
	ctx := context.Background()

	clock := time.Now()
	l.now = func() time.Time { return clock }

	if _, err := l.LoadPrices(ctx, []string{"AAPL"}); err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}

	clock = clock.Add(PricesTTL - time.Minute)
	if _, err := l.LoadPrices(ctx, []string{"AAPL"}); err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if len(provider.priceCalls) != 1 {
		t.Fatalf("entry expired too early, %d upstream calls", len(provider.priceCalls))
	}

	clock = clock.Add(2 * time.Minute)
	provider.prices["AAPL"] = price("160")
	got, err := l.LoadPrices(ctx, []string{"AAPL"})
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if len(provider.priceCalls) != 2 {
		t.Fatalf("expired entry not refetched, %d upstream calls", len(provider.priceCalls))
	}
	if !got["AAPL"].AdjClose.Equal(decimal.NewFromInt(160)) {
		t.Errorf("stale price returned after expiry: %v", got["AAPL"])
	}
}

func TestLoadPricesUpstreamFailureReturnsPartial(t *testing.T) {
	provider := &fakeProvider{prices: map[string]tracker.SymbolPrice{"AAPL": price("150")}}
	l := newTestLoader(provider)
	ctx := context.Background()

	if _, err := l.LoadPrices(ctx, []string{"AAPL"}); err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}

	provider.err = ErrUpstreamUnavailable
	got, err := l.LoadPrices(ctx, []string{"AAPL", "GOOG"})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable, got %v", err)
	}
	if _, ok := got["AAPL"]; !ok {
		t.Errorf("cached subset should be returned on upstream failure, got %v", got)
	}
	if _, ok := got["GOOG"]; ok {
		t.Errorf("unfetched symbol should be absent, got %v", got)
	}
}

func TestLoaderSurvivesStoreFailure(t *testing.T) {
	provider := &fakeProvider{prices: map[string]tracker.SymbolPrice{"AAPL": price("150")}}
	l := NewLoader(DiskStore{Dir: "/dev/null/nope"}, provider)

	got, err := l.LoadPrices(context.Background(), []string{"AAPL"})
	if err != nil {
		t.Fatalf("a broken store must degrade to a miss, got %v", err)
	}
	if !got["AAPL"].AdjClose.Equal(decimal.NewFromInt(150)) {
		t.Errorf("unexpected price: %v", got)
	}
}

func TestLoaderReadsThroughDiskStore(t *testing.T) {
	dir := t.TempDir()
	provider := &fakeProvider{prices: map[string]tracker.SymbolPrice{"AAPL": price("150")}}

	l := NewLoader(DiskStore{Dir: dir}, provider)
	if _, err := l.LoadPrices(context.Background(), []string{"AAPL"}); err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}

	// A fresh loader over the same directory, and a provider with no data:
	// the hit must come from disk.
	l2 := NewLoader(DiskStore{Dir: dir}, &fakeProvider{})
	got, err := l2.LoadPrices(context.Background(), []string{"AAPL"})
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if !got["AAPL"].AdjClose.Equal(decimal.NewFromInt(150)) {
		t.Errorf("price not served from disk: %v", got)
	}
}

func TestLoadRate(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("0.92"),
	}}
	l := newTestLoader(provider)
	ctx := context.Background()

	rate, err := l.LoadRate(ctx, "EUR")
	if err != nil {
		t.Fatalf("LoadRate: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("0.92")) {
		t.Errorf("rate = %s, want 0.92", rate)
	}

	if _, err := l.LoadRate(ctx, "EUR"); err != nil {
		t.Fatalf("LoadRate: %v", err)
	}
	if len(provider.rateCalls) != 1 {
		t.Errorf("want 1 upstream call, got %d", len(provider.rateCalls))
	}

	if _, err := l.LoadRate(ctx, "XXX"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound for unknown currency, got %v", err)
	}
}

func TestLoadCurrencyWarmsWholeRegistry(t *testing.T) {
	provider := &fakeProvider{}
	l := newTestLoader(provider)
	ctx := context.Background()

	meta, err := l.LoadCurrency(ctx, "EUR")
	if err != nil {
		t.Fatalf("LoadCurrency: %v", err)
	}
	if meta.Name != "Euro" {
		t.Errorf("metadata = %+v", meta)
	}

	// The single fetch returned the full registry, so another code is a hit.
	if _, err := l.LoadCurrency(ctx, "USD"); err != nil {
		t.Fatalf("LoadCurrency: %v", err)
	}
	if provider.currencyCalls != 1 {
		t.Errorf("want 1 registry fetch, got %d", provider.currencyCalls)
	}

	if _, err := l.LoadCurrency(ctx, "XXX"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

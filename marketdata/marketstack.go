package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
)

// This file contains the MarketStack provider: prices, dividends and splits
// from marketstack.com batch endpoints, exchange rates and the currency
// registry from the apilayer exchangerates_data API.

const marketstackAPIKey = "MARKETSTACK_API_KEY"
const apilayerAPIKey = "APILAYER_API_KEY"

var marketstackFlag = flag.String("marketstack-api-key", "", "MarketStack API key for fetching prices, dividends and splits.\n If missing it will read the environment variable \""+marketstackAPIKey+"\". You can get one at https://marketstack.com/")
var apilayerFlag = flag.String("apilayer-api-key", "", "apilayer API key for fetching exchange rates.\n If missing it will read the environment variable \""+apilayerAPIKey+"\". You can get one at https://apilayer.com/")

// MarketStack is a Provider over the MarketStack and apilayer HTTP APIs.
type MarketStack struct {
	client             *http.Client
	accessKey, rateKey string
}

// NewMarketStack creates the provider, reading API keys from the flags or
// the environment.
func NewMarketStack() *MarketStack {
	accessKey := *marketstackFlag
	if accessKey == "" {
		accessKey = os.Getenv(marketstackAPIKey)
	}
	rateKey := *apilayerFlag
	if rateKey == "" {
		rateKey = os.Getenv(apilayerAPIKey)
	}
	return &MarketStack{client: http.DefaultClient, accessKey: accessKey, rateKey: rateKey}
}

var _ Provider = (*MarketStack)(nil)

// FetchPrices implements Provider using the eod/latest batch endpoint.
func (m *MarketStack) FetchPrices(ctx context.Context, symbols []string) (map[string]tracker.SymbolPrice, error) {
	// https://api.marketstack.com/v1/eod/latest?symbols=AAPL,MSFT
	// {"data": [ {"symbol": "AAPL", "adj_close": 189.95, ...}, ... ]}
	var content struct {
		Data []struct {
			Symbol   string          `json:"symbol"`
			AdjClose decimal.Decimal `json:"adj_close"`
		} `json:"data"`
	}
	if err := m.get(ctx, "eod/latest", symbols, &content); err != nil {
		return nil, err
	}
	prices := make(map[string]tracker.SymbolPrice, len(content.Data))
	for _, d := range content.Data {
		prices[d.Symbol] = tracker.SymbolPrice{Symbol: d.Symbol, AdjClose: d.AdjClose}
	}
	return prices, nil
}

// FetchDividends implements Provider using the dividends batch endpoint.
func (m *MarketStack) FetchDividends(ctx context.Context, symbols []string) (map[string][]tracker.DividendEvent, error) {
	// https://api.marketstack.com/v1/dividends?symbols=AAPL
	// {"data": [ {"date": "2024-02-09", "dividend": 0.24, "symbol": "AAPL"}, ... ]}
	var content struct {
		Data []struct {
			Date     date.Date       `json:"date"`
			Dividend decimal.Decimal `json:"dividend"`
			Symbol   string          `json:"symbol"`
		} `json:"data"`
	}
	if err := m.get(ctx, "dividends", symbols, &content); err != nil {
		return nil, err
	}
	dividends := make(map[string][]tracker.DividendEvent)
	for _, d := range content.Data {
		dividends[d.Symbol] = append(dividends[d.Symbol], tracker.DividendEvent{
			Symbol: d.Symbol,
			Date:   d.Date,
			Amount: d.Dividend,
		})
	}
	return dividends, nil
}

// FetchSplits implements Provider using the splits batch endpoint.
func (m *MarketStack) FetchSplits(ctx context.Context, symbols []string) (map[string][]tracker.SplitEvent, error) {
	// https://api.marketstack.com/v1/splits?symbols=AAPL
	// {"data": [ {"date": "2020-08-31", "split_factor": 4, "symbol": "AAPL"}, ... ]}
	var content struct {
		Data []struct {
			Date   date.Date       `json:"date"`
			Factor decimal.Decimal `json:"split_factor"`
			Symbol string          `json:"symbol"`
		} `json:"data"`
	}
	if err := m.get(ctx, "splits", symbols, &content); err != nil {
		return nil, err
	}
	splits := make(map[string][]tracker.SplitEvent)
	for _, d := range content.Data {
		splits[d.Symbol] = append(splits[d.Symbol], tracker.SplitEvent{
			Symbol: d.Symbol,
			Date:   d.Date,
			Factor: d.Factor,
		})
	}
	return splits, nil
}

// FetchRates implements Provider using the apilayer latest-rates endpoint.
func (m *MarketStack) FetchRates(ctx context.Context, base string, currencies []string) (map[string]decimal.Decimal, error) {
	// https://api.apilayer.com/exchangerates_data/latest?base=USD&symbols=ILS,EUR
	// {"base": "USD", "rates": {"ILS": 3.64, "EUR": 0.92}, ...}
	addr := fmt.Sprintf("https://api.apilayer.com/exchangerates_data/latest?base=%s&symbols=%s",
		url.QueryEscape(base), url.QueryEscape(strings.Join(currencies, ",")))
	var payload any
	if err := jwget(ctx, m.client, addr, http.Header{"apikey": {m.rateKey}}, &payload); err != nil {
		return nil, err
	}

	// The payload shape varies with plan and error conditions, extract the
	// rates object instead of committing to the full schema.
	found, err := jsonpath.Get("$.rates", payload)
	if err != nil {
		return nil, fmt.Errorf("no rates in response: %w", ErrMalformedPayload)
	}
	object, ok := found.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("rates is a %T not an object: %w", found, ErrMalformedPayload)
	}
	rates := make(map[string]decimal.Decimal, len(object))
	for code, value := range object {
		rate, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("rate %s is a %T not a number: %w", code, value, ErrMalformedPayload)
		}
		rates[code] = decimal.NewFromFloat(rate)
	}
	return rates, nil
}

// FetchCurrencies implements Provider using the apilayer symbols endpoint.
// Display graphemes come from the go-money registry, the endpoint only
// carries names.
func (m *MarketStack) FetchCurrencies(ctx context.Context) (map[string]tracker.CurrencyMetadata, error) {
	// https://api.apilayer.com/exchangerates_data/symbols
	// {"symbols": {"ILS": "Israeli New Sheqel", ...}}
	addr := "https://api.apilayer.com/exchangerates_data/symbols"
	var payload any
	if err := jwget(ctx, m.client, addr, http.Header{"apikey": {m.rateKey}}, &payload); err != nil {
		return nil, err
	}

	found, err := jsonpath.Get("$.symbols", payload)
	if err != nil {
		return nil, fmt.Errorf("no symbols in response: %w", ErrMalformedPayload)
	}
	object, ok := found.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("symbols is a %T not an object: %w", found, ErrMalformedPayload)
	}
	currencies := make(map[string]tracker.CurrencyMetadata, len(object))
	for code, value := range object {
		name, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("symbol %s is a %T not a string: %w", code, value, ErrMalformedPayload)
		}
		grapheme := code
		if cur := money.GetCurrency(code); cur != nil {
			grapheme = cur.Grapheme
		}
		currencies[code] = tracker.CurrencyMetadata{Code: code, Symbol: grapheme, Name: name}
	}
	return currencies, nil
}

// get queries a MarketStack batch endpoint for the given symbols.
func (m *MarketStack) get(ctx context.Context, endpoint string, symbols []string, data any) error {
	addr := fmt.Sprintf("https://api.marketstack.com/v1/%s?access_key=%s&symbols=%s",
		endpoint, url.QueryEscape(m.accessKey), url.QueryEscape(strings.Join(symbols, ",")))
	return jwget(ctx, m.client, addr, nil, data)
}

// jwget performs an HTTP GET request and unmarshals the JSON response into
// the provided data structure.
func jwget(ctx context.Context, client *http.Client, addr string, header http.Header, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return fmt.Errorf("invalid request %q: %w", addr, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v/%v: %v: %w", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status, ErrUpstreamUnavailable)
	}
	var buf bytes.Buffer
	if _, err = io.Copy(&buf, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if err := json.Unmarshal(buf.Bytes(), data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

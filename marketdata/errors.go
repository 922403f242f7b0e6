package marketdata

import "errors"

// ErrUpstreamUnavailable reports that the upstream market-data provider
// could not be reached. Cache-resolved entries are still returned alongside
// it; callers degrade the unresolved symbols to "no data".
var ErrUpstreamUnavailable = errors.New("market data provider unavailable")

// ErrMalformedPayload reports that the upstream provider answered with a
// payload that does not match its documented schema. Handled like
// ErrUpstreamUnavailable.
var ErrMalformedPayload = errors.New("malformed market data payload")

// ErrStoreUnavailable reports that the durable cache store could not be
// reached. The loader treats it as an unconditional cache miss, never as a
// fatal failure.
var ErrStoreUnavailable = errors.New("cache store unavailable")

// ErrNotFound reports that a single-key resolution did not yield the
// requested key.
var ErrNotFound = errors.New("not found")

// Package tracker computes investment-performance metrics for a user's
// brokerage transaction ledger: totals invested and withdrawn, dividend
// payouts, current valuation, and time-weighted yields (Modified Dietz,
// annualized), per account and across all accounts.
//
// The package consumes a ledger snapshot and account metadata through the
// LedgerStore contract, and security prices, dividends, splits and currency
// rates through the MarketData contract (see the marketdata subpackage for
// the cache-aside implementation). Results are assembled fresh on every
// request and never persisted.
package tracker

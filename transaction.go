package tracker

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/etnz/tracker/date"
)

// TransactionType is a typed string for identifying ledger transaction kinds.
type TransactionType string

// Transaction types recorded in a ledger.
const (
	Buy      TransactionType = "buy"
	Sell     TransactionType = "sell"
	Dividend TransactionType = "dividend"
	Split    TransactionType = "split"
)

// ParseTransactionType parses a string into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case Buy, Sell, Dividend, Split:
		return TransactionType(s), nil
	default:
		return "", fmt.Errorf("unknown transaction type: %q", s)
	}
}

// Transaction is a single row of a brokerage ledger.
//
// A Transaction is immutable once created: the analysis pipeline never
// modifies an existing row, it only appends synthetic dividend rows when
// merging market dividend events into a ledger.
//
// For dividend rows Quantity is always 0 and PPS carries the per-share
// payout amount. For split rows PPS carries the split factor (e.g. 2 for a
// 2-for-1 split).
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Date      date.Date       `json:"date"`
	Type      TransactionType `json:"type"`
	Quantity  uint64          `json:"quantity"`
	PPS       decimal.Decimal `json:"pps"`
}

// NewBuy creates a new buy transaction.
func NewBuy(day date.Date, account, symbol string, quantity uint64, pps decimal.Decimal) Transaction {
	return Transaction{ID: uuid.NewString(), AccountID: account, Symbol: symbol, Date: day, Type: Buy, Quantity: quantity, PPS: pps}
}

// NewSell creates a new sell transaction.
func NewSell(day date.Date, account, symbol string, quantity uint64, pps decimal.Decimal) Transaction {
	return Transaction{ID: uuid.NewString(), AccountID: account, Symbol: symbol, Date: day, Type: Sell, Quantity: quantity, PPS: pps}
}

// NewDividend creates a new dividend transaction. The payout is amount per
// share; the number of shares it applies to is resolved at analysis time
// from the position held on that date.
func NewDividend(day date.Date, account, symbol string, amount decimal.Decimal) Transaction {
	return Transaction{ID: uuid.NewString(), AccountID: account, Symbol: symbol, Date: day, Type: Dividend, Quantity: 0, PPS: amount}
}

// NewSplit creates a new split transaction with the given factor.
func NewSplit(day date.Date, account, symbol string, factor decimal.Decimal) Transaction {
	return Transaction{ID: uuid.NewString(), AccountID: account, Symbol: symbol, Date: day, Type: Split, Quantity: 0, PPS: factor}
}

// Validate checks a transaction for correctness. It returns the transaction,
// with an ID assigned if it was missing, or an error detailing the failure.
func (t Transaction) Validate() (Transaction, error) {
	var errs error
	if t.Symbol == "" {
		errs = errors.Join(errs, errors.New("symbol is missing"))
	}
	if t.Date.IsZero() {
		errs = errors.Join(errs, errors.New("date is missing"))
	}
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		errs = errors.Join(errs, err)
	}
	if t.PPS.IsNegative() {
		errs = errors.Join(errs, fmt.Errorf("negative pps %s", t.PPS))
	}
	switch t.Type {
	case Dividend:
		if t.Quantity != 0 {
			errs = errors.Join(errs, fmt.Errorf("dividend quantity must be 0, got %d", t.Quantity))
		}
	case Split:
		if !t.PPS.IsPositive() {
			errs = errors.Join(errs, fmt.Errorf("split factor must be positive, got %s", t.PPS))
		}
	}
	if errs != nil {
		return t, fmt.Errorf("invalid %s transaction on %v: %w", t.Type, t.Date, errs)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return t, nil
}

// qty returns the transaction quantity as a decimal.
func (t Transaction) qty() decimal.Decimal { return decimal.NewFromUint64(t.Quantity) }

// amount returns the transaction cash amount, quantity times price per share.
func (t Transaction) amount() decimal.Decimal { return t.qty().Mul(t.PPS) }

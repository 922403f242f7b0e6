package tracker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// DecodeLedger decodes transactions from a stream of JSONL data, one
// transaction object per line, validating each row.
func DecodeLedger(r io.Reader) ([]Transaction, error) {
	var transactions []Transaction
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines.
		}
		var tx Transaction
		if err := json.Unmarshal(line, &tx); err != nil {
			return nil, fmt.Errorf("parse error line %d: %w", i, err)
		}
		tx, err := tx.Validate()
		if err != nil {
			return nil, fmt.Errorf("parse error line %d: %w", i, err)
		}
		transactions = append(transactions, tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read ledger: %w", err)
	}
	return transactions, nil
}

// EncodeLedger writes transactions as JSONL, one object per line, in the
// order given.
func EncodeLedger(w io.Writer, transactions []Transaction) error {
	enc := json.NewEncoder(w)
	for _, tx := range transactions {
		if err := enc.Encode(tx); err != nil {
			return fmt.Errorf("could not encode transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}

// FileLedgerStore is a LedgerStore over a plain directory layout, one
// folder per user holding a transactions.jsonl ledger and an accounts.json
// metadata map. Human readable, and git friendly.
type FileLedgerStore struct {
	Dir string
}

const (
	ledgerFilename   = "transactions.jsonl"
	accountsFilename = "accounts.json"
)

// Transactions implements LedgerStore.
func (s FileLedgerStore) Transactions(_ context.Context, userID string) ([]Transaction, error) {
	file := filepath.Join(s.Dir, userID, ledgerFilename)
	r, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q for reading: %w", file, err)
	}
	defer r.Close()
	return DecodeLedger(r)
}

// Accounts implements LedgerStore.
func (s FileLedgerStore) Accounts(_ context.Context, userID string) (map[string]AccountMetadata, error) {
	file := filepath.Join(s.Dir, userID, accountsFilename)
	content, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			// Accounts metadata is optional, a bare ledger is enough.
			return map[string]AccountMetadata{}, nil
		}
		return nil, fmt.Errorf("cannot read %q: %w", file, err)
	}
	accounts := make(map[string]AccountMetadata)
	if err := json.Unmarshal(content, &accounts); err != nil {
		return nil, fmt.Errorf("format error %q: %w", file, err)
	}
	return accounts, nil
}

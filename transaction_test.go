package tracker

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/etnz/tracker/date"
)

func TestParseTransactionType(t *testing.T) {
	for _, s := range []string{"buy", "sell", "dividend", "split"} {
		if _, err := ParseTransactionType(s); err != nil {
			t.Errorf("ParseTransactionType(%q): %v", s, err)
		}
	}
	if _, err := ParseTransactionType("short"); err == nil {
		t.Error("ParseTransactionType(short) should fail")
	}
}

func TestTransactionValidate(t *testing.T) {
	day := date.New(2024, time.May, 2)
	tests := []struct {
		name    string
		tx      Transaction
		wantErr string
	}{
		{"valid buy", NewBuy(day, "a", "AAPL", 10, dec("100")), ""},
		{"missing symbol", NewBuy(day, "a", "", 10, dec("100")), "symbol is missing"},
		{"missing date", NewBuy(date.Date{}, "a", "AAPL", 10, dec("100")), "date is missing"},
		{"bad type", Transaction{Symbol: "AAPL", Date: day, Type: "short"}, "unknown transaction type"},
		{"negative pps", NewBuy(day, "a", "AAPL", 10, dec("-1")), "negative pps"},
		{"dividend with quantity", Transaction{Symbol: "KO", Date: day, Type: Dividend, Quantity: 3, PPS: dec("1")}, "quantity must be 0"},
		{"zero split factor", Transaction{Symbol: "KO", Date: day, Type: Split, PPS: dec("0")}, "factor must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.tx.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateAssignsID(t *testing.T) {
	tx := Transaction{Symbol: "AAPL", Date: date.New(2024, time.May, 2), Type: Buy, Quantity: 1, PPS: dec("1")}
	tx, err := tx.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if tx.ID == "" {
		t.Error("Validate should assign an id when missing")
	}
}

func TestTransactionJSON(t *testing.T) {
	tx := NewBuy(date.New(2024, time.May, 2), "main", "AAPL", 10, dec("100.5"))
	raw, err := json.Marshal(tx)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"account_id":"main"`, `"date":"2024-05-02"`, `"type":"buy"`, `"pps":100.5`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("encoded transaction missing %s: %s", want, raw)
		}
	}

	var back Transaction
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Date != tx.Date || !back.PPS.Equal(tx.PPS) || back.Quantity != 10 {
		t.Errorf("round trip changed the transaction: %+v", back)
	}
}

package date

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2024-01-15", want: New(2024, time.January, 15)},
		{in: "2024-1-5", want: New(2024, time.January, 5)},
		{in: "2024-02-30", wantErr: true}, // day out of range
		{in: "15/01/2024", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNew_normalizes(t *testing.T) {
	// Day overflow rolls into the next month.
	got := New(2024, time.January, 32)
	want := New(2024, time.February, 1)
	if got != want {
		t.Errorf("New(2024, January, 32) = %v, want %v", got, want)
	}
}

func TestSub(t *testing.T) {
	a := MustParse("2024-01-01")
	b := MustParse("2024-12-31")
	if days := b.Sub(a); days != 365 {
		t.Errorf("b.Sub(a) = %d, want 365 (2024 is a leap year)", days)
	}
	if days := a.Sub(b); days != -365 {
		t.Errorf("a.Sub(b) = %d, want -365", days)
	}
	if days := a.Sub(a); days != 0 {
		t.Errorf("a.Sub(a) = %d, want 0", days)
	}
}

func TestAdd(t *testing.T) {
	d := MustParse("2025-02-27")
	if got := d.Add(2); got != MustParse("2025-03-01") {
		t.Errorf("Add(2) = %v, want 2025-03-01", got)
	}
	if got := d.Add(-27); got != MustParse("2025-01-31") {
		t.Errorf("Add(-27) = %v, want 2025-01-31", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d := MustParse("2025-07-01")
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"2025-07-01"` {
		t.Errorf("Marshal = %s, want %q", b, "2025-07-01")
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != d {
		t.Errorf("round trip = %v, want %v", back, d)
	}
}

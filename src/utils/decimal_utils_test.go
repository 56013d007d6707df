package utils

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCoerceDecimal(t *testing.T) {
	tests := []struct {
		name  string
		in    interface{}
		want  string
		wantOK bool
	}{
		{"json number", json.Number("1755.06"), "1755.06", true},
		{"float", float64(10.5), "10.5", true},
		{"string", " 42.10 ", "42.1", true},
		{"negative string", "-3", "-3", true},
		{"empty string", "   ", "0", false},
		{"garbage string", "N/A", "0", false},
		{"nil", nil, "0", false},
		{"bool", true, "0", false},
	}
	for _, tc := range tests {
		got, ok := CoerceDecimal(tc.in)
		if ok != tc.wantOK {
			t.Errorf("%s: ok = %v, want %v", tc.name, ok, tc.wantOK)
			continue
		}
		if ok && got.String() != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got.String(), tc.want)
		}
	}
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0.005", "0.01"},
		{"877.525", "877.53"},
		{"499999.995", "500000"},
		{"-0.005", "-0.01"},
		{"80", "80"},
	}
	for _, tc := range tests {
		d, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := Round2(d); got.String() != tc.want {
			t.Errorf("Round2(%s) = %s, want %s", tc.in, got.String(), tc.want)
		}
	}
}

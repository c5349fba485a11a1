package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPriceTableQuote(t *testing.T) {
	high := int64(10)
	table := PriceTable{
		"1": NewMarketPrice(10, 8),
		"2": {High: &high},
		"3": {},
	}

	tests := []struct {
		id       string
		wantHas  bool
		wantOK   bool
		wantHigh int64
		wantLow  int64
	}{
		{"1", true, true, 10, 8},
		{"2", true, false, 0, 0},
		{"3", true, false, 0, 0},
		{"4", false, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := table.Has(tt.id); got != tt.wantHas {
				t.Errorf("Has(%s) = %v, want %v", tt.id, got, tt.wantHas)
			}
			h, l, ok := table.Quote(tt.id)
			if ok != tt.wantOK || h != tt.wantHigh || l != tt.wantLow {
				t.Errorf("Quote(%s) = %d, %d, %v", tt.id, h, l, ok)
			}
		})
	}
}

func TestParseValuationField(t *testing.T) {
	tests := []struct {
		input  string
		want   ValuationField
		wantOK bool
	}{
		{"", FieldMeanValue, true},
		{"low_value", FieldLowValue, true},
		{"mean_value", FieldMeanValue, true},
		{"high_value", FieldHighValue, true},
		{"median", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseValuationField(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseValuationField(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValueTotalsAdd(t *testing.T) {
	var totals ValueTotals
	totals.Add(PriceSnapshot{LowValueEstimate: 4, HighValueEstimate: 7, MeanValueEstimate: decimal.RequireFromString("5.5")})
	totals.Add(PriceSnapshot{LowValueEstimate: 1, HighValueEstimate: 2, MeanValueEstimate: decimal.RequireFromString("1.5")})

	if totals.Low != 5 || totals.High != 9 || !totals.Mean.Equal(decimal.NewFromInt(7)) {
		t.Errorf("totals = %+v", totals)
	}
}

func TestPriceCategoryIsPriceable(t *testing.T) {
	for _, c := range AllPriceCategories() {
		want := c != CategoryUntradeable
		if got := c.IsPriceable(); got != want {
			t.Errorf("%s.IsPriceable() = %v, want %v", c, got, want)
		}
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValueTotals sums the latest snapshot of every priced item in a bank
type ValueTotals struct {
	Low  int64           `json:"low"`
	Mean decimal.Decimal `json:"mean"`
	High int64           `json:"high"`
}

// Add accumulates one snapshot into the totals
func (t *ValueTotals) Add(s PriceSnapshot) {
	t.Low += s.LowValueEstimate
	t.High += s.HighValueEstimate
	t.Mean = t.Mean.Add(s.MeanValueEstimate)
}

// ItemValuation is the latest valuation of one bank item
type ItemValuation struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	LowValue  int64           `json:"low_value"`
	MeanValue decimal.Decimal `json:"mean_value"`
	HighValue int64           `json:"high_value"`
}

type BankValuation struct {
	Bank        Bank            `json:"bank"`
	Totals      ValueTotals     `json:"totals"`
	Items       []ItemValuation `json:"items"`
	PricedItems int             `json:"priced_items"`
	TotalItems  int             `json:"total_items"`
}

// BankHistoryPoint is the bank value recorded by one import or re-pricing pass
type BankHistoryPoint struct {
	PassID    string      `json:"pass_id"`
	Timestamp time.Time   `json:"timestamp"`
	Items     int         `json:"items"`
	Totals    ValueTotals `json:"totals"`
}

type BankHistoryResponse struct {
	Bank   string             `json:"bank"`
	Points []BankHistoryPoint `json:"points"`
}

// ValuationField selects which estimate a bank comparison uses
type ValuationField string

const (
	FieldLowValue  ValuationField = "low_value"
	FieldMeanValue ValuationField = "mean_value"
	FieldHighValue ValuationField = "high_value"
)

// ParseValuationField maps a query value to a ValuationField, defaulting to the mean
func ParseValuationField(s string) (ValuationField, bool) {
	switch ValuationField(s) {
	case FieldLowValue, FieldMeanValue, FieldHighValue:
		return ValuationField(s), true
	case "":
		return FieldMeanValue, true
	default:
		return "", false
	}
}

// Pick returns the estimate of an item valuation selected by the field
func (f ValuationField) Pick(v ItemValuation) decimal.Decimal {
	switch f {
	case FieldLowValue:
		return decimal.NewFromInt(v.LowValue)
	case FieldHighValue:
		return decimal.NewFromInt(v.HighValue)
	default:
		return v.MeanValue
	}
}

// ComparisonRow is one item name present in either compared bank. Nil sides mean
// the item has no priced entry in that bank.
type ComparisonRow struct {
	Name              string           `json:"name"`
	QuantityA         *int             `json:"quantity_a"`
	QuantityB         *int             `json:"quantity_b"`
	ValueA            *decimal.Decimal `json:"value_a"`
	ValueB            *decimal.Decimal `json:"value_b"`
	QuantityDiff      int              `json:"quantity_diff"`
	ValueDiff         decimal.Decimal  `json:"value_diff"`
	QuantityDirection string           `json:"quantity_direction"`
}

type BankComparison struct {
	BankA   string          `json:"bank_a"`
	BankB   string          `json:"bank_b"`
	Field   ValuationField  `json:"field"`
	TotalsA ValueTotals     `json:"totals_a"`
	TotalsB ValueTotals     `json:"totals_b"`
	Rows    []ComparisonRow `json:"rows"`
}

// ItemHistoryRow is one snapshot of an item with its per-unit price
type ItemHistoryRow struct {
	ItemName          string          `json:"item_name"`
	Quantity          int             `json:"quantity"`
	SingleItemPrice   decimal.Decimal `json:"single_item_price"`
	LowValueEstimate  int64           `json:"low_value_estimate"`
	MeanValueEstimate decimal.Decimal `json:"mean_value_estimate"`
	HighValueEstimate int64           `json:"high_value_estimate"`
	Timestamp         time.Time       `json:"timestamp"`
}

// ItemSearchResponse carries either the snapshot history of an exact match or
// the names of similar items when nothing matched exactly
type ItemSearchResponse struct {
	Query        string           `json:"query"`
	ExactMatch   bool             `json:"exact_match"`
	History      []ItemHistoryRow `json:"history,omitempty"`
	SimilarNames []string         `json:"similar_names,omitempty"`
}

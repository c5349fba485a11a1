package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/bank-tracker/internal/models"
)

// ErrNotPriceable is returned for untradeable items. Callers skip the item
// without counting it as a failure.
var ErrNotPriceable = errors.New("item has no market price")

var two = decimal.NewFromInt(2)

// MissingMarketError means a market the strategy depends on is absent from the
// price feed or has no quote. Markets get delisted while the reference tables
// still name them, so this only skips the one item.
type MissingMarketError struct {
	Category models.PriceCategory
	MarketID string
}

func (e *MissingMarketError) Error() string {
	if e.MarketID == "" {
		return fmt.Sprintf("%s item has no market id configured", e.Category)
	}
	return fmt.Sprintf("market %s for %s item is not in the price feed", e.MarketID, e.Category)
}

// Valuation is the estimated worth of a quantity of one item
type Valuation struct {
	High int64
	Low  int64
	Mean decimal.Decimal
}

// NewValuation derives the mean from the high and low estimates
func NewValuation(high, low int64) Valuation {
	return Valuation{
		High: high,
		Low:  low,
		Mean: decimal.NewFromInt(high).Add(decimal.NewFromInt(low)).Div(two),
	}
}

// Value applies a pricing strategy to a quantity of an item
func Value(strategy PricingStrategy, quantity int, prices models.PriceTable) (Valuation, error) {
	q := int64(quantity)

	switch strategy.Category {
	case models.CategoryTradeable, models.CategoryUncharged:
		high, low, err := quote(strategy.Category, strategy.MarketID, prices)
		if err != nil {
			return Valuation{}, err
		}
		return NewValuation(high*q, low*q), nil

	case models.CategoryOrnamentKit:
		baseHigh, baseLow, err := quote(strategy.Category, strategy.MarketID, prices)
		if err != nil {
			return Valuation{}, err
		}
		kitHigh, kitLow, err := quote(strategy.Category, strategy.KitMarketID, prices)
		if err != nil {
			return Valuation{}, err
		}
		// base and kit are summed per unit before scaling by quantity
		return NewValuation((baseHigh+kitHigh)*q, (baseLow+kitLow)*q), nil

	case models.CategoryCurrency:
		return NewValuation(q, q), nil

	default:
		return Valuation{}, ErrNotPriceable
	}
}

func quote(category models.PriceCategory, marketID string, prices models.PriceTable) (high, low int64, err error) {
	if marketID == "" {
		return 0, 0, &MissingMarketError{Category: category}
	}
	high, low, ok := prices.Quote(marketID)
	if !ok {
		return 0, 0, &MissingMarketError{Category: category, MarketID: marketID}
	}
	return high, low, nil
}

// Snapshot turns a valuation into a snapshot row for the given item and pass
func (v Valuation) Snapshot(item models.BankItem, passID string, at time.Time) models.PriceSnapshot {
	return models.PriceSnapshot{
		BankItemID:        item.ID,
		ItemName:          item.Name,
		Timestamp:         at,
		PassID:            passID,
		HighValueEstimate: v.High,
		LowValueEstimate:  v.Low,
		MeanValueEstimate: v.Mean,
	}
}

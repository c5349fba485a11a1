package services

import (
	"strconv"

	"github.com/codyseavey/bank-tracker/internal/models"
)

// PricingStrategy says how a bank item is valued and which markets it needs.
// For ornament kits MarketID is the base item and KitMarketID the kit.
type PricingStrategy struct {
	Category    models.PriceCategory
	MarketID    string
	KitMarketID string
}

// Resolver classifies inventory items against the reference tables
type Resolver struct {
	tables *ReferenceTables
}

func NewResolver(tables *ReferenceTables) *Resolver {
	if tables == nil {
		tables = NewReferenceTables(nil, nil)
	}
	return &Resolver{tables: tables}
}

// Resolve picks the pricing strategy of an item. An item may appear in more
// than one table, so the order below is significant: listed on the exchange,
// then tradeable once uncharged, then base item plus ornament kit, then coins.
// Only key membership of the price table is consulted.
func (r *Resolver) Resolve(itemID int, prices models.PriceTable) PricingStrategy {
	key := models.MarketKey(itemID)

	if prices.Has(key) {
		return PricingStrategy{Category: models.CategoryTradeable, MarketID: key}
	}

	if uncharged, ok := r.tables.UnchargedID(key); ok {
		return PricingStrategy{Category: models.CategoryUncharged, MarketID: uncharged}
	}

	if base, kit, ok := r.tables.OrnamentParts(key); ok {
		return PricingStrategy{Category: models.CategoryOrnamentKit, MarketID: base, KitMarketID: kit}
	}

	if itemID == models.CoinsItemID {
		return PricingStrategy{Category: models.CategoryCurrency}
	}

	return PricingStrategy{Category: models.CategoryUntradeable}
}

// NewBankItem builds the stored form of an inventory entry, recording the
// resolved strategy so later re-pricing never consults the tables again
func NewBankItem(bankID uint, entry models.InventoryEntry, strategy PricingStrategy, prices models.PriceTable) models.BankItem {
	item := models.BankItem{
		BankID:      bankID,
		ItemID:      entry.ItemID,
		Name:        entry.ItemName,
		Quantity:    entry.Quantity,
		IsTradeable: prices.Has(models.MarketKey(entry.ItemID)) || entry.ItemID == models.CoinsItemID,
		Category:    strategy.Category,
		MarketID:    marketIDPtr(strategy.MarketID),
		KitMarketID: marketIDPtr(strategy.KitMarketID),
	}

	switch strategy.Category {
	case models.CategoryUncharged:
		item.UnchargedID = marketIDPtr(strategy.MarketID)
	case models.CategoryOrnamentKit:
		item.HasOrnamentKitEquipped = true
	}

	return item
}

// StrategyForItem rebuilds the strategy recorded on a stored bank item
func StrategyForItem(item models.BankItem) PricingStrategy {
	s := PricingStrategy{Category: item.Category}
	if item.MarketID != nil {
		s.MarketID = models.MarketKey(*item.MarketID)
	}
	if item.KitMarketID != nil {
		s.KitMarketID = models.MarketKey(*item.KitMarketID)
	}
	if s.Category == "" {
		s.Category = models.CategoryUntradeable
	}
	return s
}

func marketIDPtr(s string) *int {
	if s == "" {
		return nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &id
}

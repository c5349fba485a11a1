package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoinsItemID is the item id of the coins stack. Coins are never listed on the
// exchange, their face value is their price.
const CoinsItemID = 995

// PriceCategory records how a bank item is priced. It is resolved once when the
// item enters a bank and never recomputed from the reference tables afterwards.
type PriceCategory string

const (
	CategoryTradeable   PriceCategory = "tradeable"
	CategoryUncharged   PriceCategory = "uncharged"
	CategoryOrnamentKit PriceCategory = "ornament_kit"
	CategoryCurrency    PriceCategory = "currency"
	CategoryUntradeable PriceCategory = "untradeable"
)

// AllPriceCategories returns every category in resolution priority order
func AllPriceCategories() []PriceCategory {
	return []PriceCategory{
		CategoryTradeable,
		CategoryUncharged,
		CategoryOrnamentKit,
		CategoryCurrency,
		CategoryUntradeable,
	}
}

// IsPriceable reports whether items of this category produce price snapshots
func (c PriceCategory) IsPriceable() bool {
	switch c {
	case CategoryTradeable, CategoryUncharged, CategoryOrnamentKit, CategoryCurrency:
		return true
	default:
		return false
	}
}

type Bank struct {
	ID        uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string     `json:"name" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []BankItem `json:"items,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// BankItem is one inventory slot captured at import time. Quantity and identity
// never change after import; re-pricing only appends PriceSnapshots.
type BankItem struct {
	ID                     uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	BankID                 uint            `json:"bank_id" gorm:"not null;index"`
	ItemID                 int             `json:"item_id" gorm:"not null"`
	Name                   string          `json:"name" gorm:"not null;index"`
	Quantity               int             `json:"quantity" gorm:"not null"`
	IsTradeable            bool            `json:"is_tradeable"`
	UnchargedID            *int            `json:"uncharged_id"`
	HasOrnamentKitEquipped bool            `json:"has_ornament_kit_equipped"`
	Category               PriceCategory   `json:"category" gorm:"size:32;index"`
	MarketID               *int            `json:"market_id,omitempty"`     // tradeable/uncharged market, or ornament base item
	KitMarketID            *int            `json:"kit_market_id,omitempty"` // ornament kit market
	Snapshots              []PriceSnapshot `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// PriceSnapshot is one valuation of one bank item at one instant. Rows are
// append-only. MeanValueEstimate is always (High + Low) / 2.
type PriceSnapshot struct {
	ID                uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	BankItemID        uint            `json:"bank_item_id" gorm:"not null;index:idx_snapshot_item_time,priority:1"`
	ItemName          string          `json:"item_name" gorm:"index"`
	Timestamp         time.Time       `json:"timestamp" gorm:"not null;index:idx_snapshot_item_time,priority:2"`
	PassID            string          `json:"pass_id" gorm:"size:36;index"`
	HighValueEstimate int64           `json:"high_value_estimate"`
	LowValueEstimate  int64           `json:"low_value_estimate"`
	MeanValueEstimate decimal.Decimal `json:"mean_value_estimate" gorm:"type:decimal(24,1)"`
}

// InventoryEntry is one slot of a raw inventory dump
type InventoryEntry struct {
	ItemID   int    `json:"item_id"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

type ImportBankRequest struct {
	Name  string           `json:"name" binding:"required"`
	TSV   string           `json:"tsv"`
	Items []InventoryEntry `json:"items"`
}

package database

import (
	"log"
	"strconv"

	"gorm.io/gorm"

	"github.com/codyseavey/bank-tracker/internal/models"
)

// OrnamentLookup resolves the base item and kit market ids of an ornamented item
type OrnamentLookup func(itemID string) (base, kit string, ok bool)

// RunMigrations runs data migrations after schema changes. Databases written
// before the category columns existed only carry the legacy tradeability flags.
func RunMigrations(db *gorm.DB, ornaments OrnamentLookup) error {
	if err := cleanupOrphanSnapshots(db); err != nil {
		return err
	}
	if err := backfillItemCategories(db, ornaments); err != nil {
		return err
	}
	return nil
}

// cleanupOrphanSnapshots removes snapshots whose bank item no longer exists.
// Older databases were written without foreign key enforcement.
func cleanupOrphanSnapshots(db *gorm.DB) error {
	if !db.Migrator().HasTable("price_snapshots") {
		return nil
	}

	result := db.Exec(`
		DELETE FROM price_snapshots
		WHERE bank_item_id NOT IN (SELECT id FROM bank_items)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d orphaned price_snapshots entries", result.RowsAffected)
	}

	return nil
}

// backfillItemCategories derives the stored pricing category from the legacy
// flags, using the same precedence the import path uses. Safe to run repeatedly
// since it only touches rows without a category.
func backfillItemCategories(db *gorm.DB, ornaments OrnamentLookup) error {
	var items []models.BankItem
	if err := db.Where("category IS NULL OR category = ''").Find(&items).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	log.Printf("Migrating bank_items: deriving category for %d legacy rows", len(items))

	return db.Transaction(func(tx *gorm.DB) error {
		for i := range items {
			item := &items[i]
			legacyCategory(item, ornaments)
			if err := tx.Model(item).Select("category", "market_id", "kit_market_id").Updates(item).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func legacyCategory(item *models.BankItem, ornaments OrnamentLookup) {
	switch {
	case item.IsTradeable && item.ItemID != models.CoinsItemID:
		id := item.ItemID
		item.Category = models.CategoryTradeable
		item.MarketID = &id
	case item.UnchargedID != nil:
		id := *item.UnchargedID
		item.Category = models.CategoryUncharged
		item.MarketID = &id
	case item.HasOrnamentKitEquipped:
		item.Category = models.CategoryOrnamentKit
		if ornaments == nil {
			log.Printf("Warning: no ornament table loaded, %s (%d) keeps empty market ids", item.Name, item.ItemID)
			return
		}
		base, kit, ok := ornaments(strconv.Itoa(item.ItemID))
		if !ok {
			log.Printf("Warning: ornament table has no entry for %s (%d)", item.Name, item.ItemID)
			return
		}
		item.MarketID = parseMarketID(base)
		item.KitMarketID = parseMarketID(kit)
	case item.ItemID == models.CoinsItemID:
		item.Category = models.CategoryCurrency
	default:
		item.Category = models.CategoryUntradeable
	}
}

func parseMarketID(s string) *int {
	id, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &id
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/bank-tracker/internal/models"
)

var (
	ErrBankExists      = errors.New("a bank with this name already exists")
	ErrBankNotFound    = errors.New("bank not found")
	ErrInvalidBankName = errors.New("bank name must not be empty")
)

const similarItemsLimit = 10

// BankStore persists banks, their items and price snapshots
type BankStore struct {
	db *gorm.DB
}

func NewBankStore(db *gorm.DB) *BankStore {
	return &BankStore{db: db}
}

// Transaction runs fn against a store bound to a single database transaction
func (s *BankStore) Transaction(ctx context.Context, fn func(tx *BankStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BankStore{db: tx})
	})
}

// NormalizeBankName trims surrounding whitespace and rejects empty names
func NormalizeBankName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidBankName
	}
	return name, nil
}

func (s *BankStore) ListBanks(ctx context.Context) ([]models.Bank, error) {
	var banks []models.Bank
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&banks).Error; err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	return banks, nil
}

func (s *BankStore) CountBanks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Bank{}).Count(&count).Error
	return count, err
}

// FindBank looks a bank up by name, ignoring case
func (s *BankStore) FindBank(ctx context.Context, name string) (*models.Bank, error) {
	var bank models.Bank
	err := s.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).First(&bank).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBankNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up bank: %w", err)
	}
	return &bank, nil
}

// NameTaken reports whether a bank with the same name, ignoring case, exists
func (s *BankStore) NameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Bank{}).
		Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check bank name: %w", err)
	}
	return count > 0, nil
}

// CreateBank inserts the bank row only; items are written with CreateItems
func (s *BankStore) CreateBank(ctx context.Context, bank *models.Bank) error {
	if err := s.db.WithContext(ctx).Omit("Items").Create(bank).Error; err != nil {
		return fmt.Errorf("failed to create bank: %w", err)
	}
	return nil
}

// CreateItems inserts items and fills in their ids
func (s *BankStore) CreateItems(ctx context.Context, items []models.BankItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Omit("Snapshots").CreateInBatches(&items, 200).Error; err != nil {
		return fmt.Errorf("failed to create bank items: %w", err)
	}
	return nil
}

func (s *BankStore) CreateSnapshots(ctx context.Context, snapshots []models.PriceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&snapshots, 200).Error; err != nil {
		return fmt.Errorf("failed to create price snapshots: %w", err)
	}
	return nil
}

func (s *BankStore) ItemsForBank(ctx context.Context, bankID uint) ([]models.BankItem, error) {
	var items []models.BankItem
	if err := s.db.WithContext(ctx).Where("bank_id = ?", bankID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load bank items: %w", err)
	}
	return items, nil
}

func (s *BankStore) bankItemIDs(bankID uint) *gorm.DB {
	return s.db.Model(&models.BankItem{}).Select("id").Where("bank_id = ?", bankID)
}

// LatestSnapshotTime returns the timestamp of the newest snapshot of any item in
// the bank, or the zero time if the bank was never priced
func (s *BankStore) LatestSnapshotTime(ctx context.Context, bankID uint) (time.Time, error) {
	var snap models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("bank_item_id IN (?)", s.bankItemIDs(bankID)).
		Order("timestamp DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest snapshot time: %w", err)
	}
	return snap.Timestamp, nil
}

// LatestSnapshots returns the newest snapshot of every priced item in the bank,
// keyed by bank item id
func (s *BankStore) LatestSnapshots(ctx context.Context, bankID uint) (map[uint]models.PriceSnapshot, error) {
	var snaps []models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("bank_item_id IN (?)", s.bankItemIDs(bankID)).
		Where("timestamp = (SELECT MAX(ps2.timestamp) FROM price_snapshots ps2 WHERE ps2.bank_item_id = price_snapshots.bank_item_id)").
		Order("id ASC").
		Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshots: %w", err)
	}

	// rows sharing the max timestamp collapse to the last inserted one
	latest := make(map[uint]models.PriceSnapshot, len(snaps))
	for _, snap := range snaps {
		latest[snap.BankItemID] = snap
	}
	return latest, nil
}

// SnapshotsForBank returns every snapshot of the bank, oldest first
func (s *BankStore) SnapshotsForBank(ctx context.Context, bankID uint) ([]models.PriceSnapshot, error) {
	var snaps []models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("bank_item_id IN (?)", s.bankItemIDs(bankID)).
		Order("timestamp ASC, id ASC").
		Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load bank snapshots: %w", err)
	}
	return snaps, nil
}

// ItemSnapshot is a price snapshot joined with the quantity of its bank item
type ItemSnapshot struct {
	models.PriceSnapshot
	Quantity int
}

// ItemSnapshots returns every snapshot of items with exactly this name in the bank
func (s *BankStore) ItemSnapshots(ctx context.Context, bankID uint, itemName string) ([]ItemSnapshot, error) {
	var rows []ItemSnapshot
	err := s.db.WithContext(ctx).
		Table("price_snapshots").
		Select("price_snapshots.*, bank_items.quantity AS quantity").
		Joins("JOIN bank_items ON bank_items.id = price_snapshots.bank_item_id").
		Where("bank_items.bank_id = ? AND price_snapshots.item_name = ?", bankID, itemName).
		Order("price_snapshots.timestamp ASC, price_snapshots.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load item snapshots: %w", err)
	}
	return rows, nil
}

// SimilarItemNames returns up to ten distinct item names in the bank containing
// fragment, ignoring case
func (s *BankStore) SimilarItemNames(ctx context.Context, bankID uint, fragment string) ([]string, error) {
	var names []string
	pattern := "%" + strings.ToLower(strings.TrimSpace(fragment)) + "%"
	err := s.db.WithContext(ctx).
		Model(&models.BankItem{}).
		Where("bank_id = ? AND LOWER(name) LIKE ?", bankID, pattern).
		Distinct().
		Order("name ASC").
		Limit(similarItemsLimit).
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search item names: %w", err)
	}
	return names, nil
}

// DeleteBank removes the bank with its items and snapshots in one transaction
func (s *BankStore) DeleteBank(ctx context.Context, name string) error {
	return s.Transaction(ctx, func(tx *BankStore) error {
		bank, err := tx.FindBank(ctx, name)
		if err != nil {
			return err
		}

		db := tx.db.WithContext(ctx)
		if err := db.Where("bank_item_id IN (?)", tx.bankItemIDs(bank.ID)).Delete(&models.PriceSnapshot{}).Error; err != nil {
			return fmt.Errorf("failed to delete snapshots: %w", err)
		}
		if err := db.Where("bank_id = ?", bank.ID).Delete(&models.BankItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete bank items: %w", err)
		}
		if err := db.Delete(&models.Bank{}, bank.ID).Error; err != nil {
			return fmt.Errorf("failed to delete bank: %w", err)
		}
		return nil
	})
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/bank-tracker/internal/database"
	"github.com/codyseavey/bank-tracker/internal/models"
)

// newTestDB opens a fresh in-memory SQLite database with the bank schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, ":memory:", "silent")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// fakePriceSource returns a fixed price table and counts calls
type fakePriceSource struct {
	mu     sync.Mutex
	prices models.PriceTable
	err    error
	calls  int
}

func (f *fakePriceSource) CurrentPrices(ctx context.Context) (models.PriceTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

func (f *fakePriceSource) FetchLatest(ctx context.Context) (models.PriceTable, error) {
	return f.CurrentPrices(ctx)
}

func (f *fakePriceSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testClock is a manually advanced clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Item ids used across the tests
const (
	idAbyssalWhip    = 4151  // listed
	idBlowpipe       = 12926 // charged, uncharged form 12924
	idBlowpipeEmpty  = 12924
	idFuryOrnament   = 12436 // fury 6585 + kit 12526
	idFury           = 6585
	idFuryKit        = 12526
	idQuestCape      = 9813 // untradeable, in no table
	idDelistedCharge = 30000
)

func testTables() *ReferenceTables {
	return NewReferenceTables(
		map[string]string{
			"12926": "12924",
			"30000": "30001", // uncharged form missing from the feed
		},
		map[string]string{
			"12436":     "6585",
			"kit_12436": "12526",
		},
	)
}

func testPrices() models.PriceTable {
	return models.PriceTable{
		"4151":  models.NewMarketPrice(1_500_000, 1_450_000),
		"12924": models.NewMarketPrice(4_000_000, 3_900_000),
		"6585":  models.NewMarketPrice(2_000_000, 1_980_000),
		"12526": models.NewMarketPrice(300_000, 250_000),
	}
}

func testInventory() []models.InventoryEntry {
	return []models.InventoryEntry{
		{ItemID: models.CoinsItemID, ItemName: "Coins", Quantity: 1_000_000},
		{ItemID: idAbyssalWhip, ItemName: "Abyssal whip", Quantity: 2},
		{ItemID: idBlowpipe, ItemName: "Toxic blowpipe", Quantity: 1},
		{ItemID: idFuryOrnament, ItemName: "Amulet of fury (or)", Quantity: 1},
		{ItemID: idQuestCape, ItemName: "Quest point cape", Quantity: 1},
	}
}

type snapshotFixture struct {
	db         *gorm.DB
	store      *BankStore
	prices     *fakePriceSource
	clock      *testClock
	snapshots  *SnapshotService
	valuations *ValuationService
}

func newSnapshotFixture(t *testing.T, cooldown time.Duration) *snapshotFixture {
	t.Helper()

	db := newTestDB(t)
	store := NewBankStore(db)
	prices := &fakePriceSource{prices: testPrices()}
	clock := newTestClock()

	svc := NewSnapshotService(store, prices, NewResolver(testTables()), NewCooldownGate(cooldown))
	svc.now = clock.Now

	return &snapshotFixture{
		db:         db,
		store:      store,
		prices:     prices,
		clock:      clock,
		snapshots:  svc,
		valuations: NewValuationService(store, 16),
	}
}

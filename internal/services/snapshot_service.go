package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codyseavey/bank-tracker/internal/metrics"
	"github.com/codyseavey/bank-tracker/internal/models"
)

// ErrPriceFeedUnavailable wraps any failure to obtain current prices. The pass
// is aborted before anything is written.
var ErrPriceFeedUnavailable = errors.New("price feed unavailable")

const (
	passKindImport  = "import"
	passKindReprice = "reprice"
)

// ImportResult summarises a bank import
type ImportResult struct {
	Bank             models.Bank `json:"bank"`
	PassID           string      `json:"pass_id"`
	ItemsImported    int         `json:"items_imported"`
	SnapshotsCreated int         `json:"snapshots_created"`
	Untradeable      int         `json:"untradeable"`
	Skipped          int         `json:"skipped"`
}

// RepriceResult summarises a re-pricing request. When Admitted is false nothing
// was written and RemainingWait says how long until the next pass is allowed.
type RepriceResult struct {
	Bank             string        `json:"bank"`
	Admitted         bool          `json:"admitted"`
	RemainingWait    time.Duration `json:"remaining_wait,omitempty"`
	NextAllowedAt    *time.Time    `json:"next_allowed_at,omitempty"`
	PassID           string        `json:"pass_id,omitempty"`
	SnapshotsCreated int           `json:"snapshots_created"`
	Untradeable      int           `json:"untradeable"`
	Skipped          int           `json:"skipped"`
}

// pricedPass is the outcome of valuing a set of items against one price table
type pricedPass struct {
	snapshots   []models.PriceSnapshot
	untradeable int
	skipped     int
}

// SnapshotService imports banks and records re-pricing passes. Each pass uses
// one price table and one instant, and writes all of its rows in a single
// transaction.
type SnapshotService struct {
	store    *BankStore
	prices   PriceSource
	resolver *Resolver
	gate     *CooldownGate
	now      func() time.Time

	interval time.Duration
	locks    sync.Map // lock key -> *sync.Mutex
}

func NewSnapshotService(store *BankStore, prices PriceSource, resolver *Resolver, gate *CooldownGate) *SnapshotService {
	if gate == nil {
		gate = NewCooldownGate(DefaultSnapshotCooldown)
	}
	return &SnapshotService{
		store:    store,
		prices:   prices,
		resolver: resolver,
		gate:     gate,
		now:      time.Now,
		interval: time.Hour,
	}
}

// SetInterval changes how often Start re-prices every bank
func (s *SnapshotService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

func (s *SnapshotService) Interval() time.Duration {
	return s.interval
}

func (s *SnapshotService) Gate() *CooldownGate {
	return s.gate
}

func (s *SnapshotService) lockFor(key string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func bankLockKey(name string) string {
	return "bank:" + strings.ToLower(strings.TrimSpace(name))
}

// ImportBank creates a bank from an inventory dump and records its first
// valuation. The name is checked before prices are fetched so a duplicate
// import never costs a feed request.
func (s *SnapshotService) ImportBank(ctx context.Context, name string, entries []models.InventoryEntry) (*ImportResult, error) {
	name, err := NormalizeBankName(name)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(bankLockKey(name))
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()

	taken, err := s.store.NameTaken(ctx, name)
	if err != nil {
		s.recordPass(passKindImport, "failed", start)
		return nil, err
	}
	if taken {
		s.recordPass(passKindImport, "rejected", start)
		return nil, ErrBankExists
	}

	prices, err := s.prices.CurrentPrices(ctx)
	if err != nil {
		s.recordPass(passKindImport, "failed", start)
		return nil, fmt.Errorf("%w: %w", ErrPriceFeedUnavailable, err)
	}

	at := s.now().UTC()
	passID := uuid.NewString()
	result := &ImportResult{PassID: passID}

	err = s.store.Transaction(ctx, func(tx *BankStore) error {
		// the name may have been claimed by another process since the first check
		taken, err := tx.NameTaken(ctx, name)
		if err != nil {
			return err
		}
		if taken {
			return ErrBankExists
		}

		bank := models.Bank{Name: name, CreatedAt: at}
		if err := tx.CreateBank(ctx, &bank); err != nil {
			return err
		}

		items := make([]models.BankItem, 0, len(entries))
		strategies := make([]PricingStrategy, 0, len(entries))
		for _, entry := range entries {
			strategy := s.resolver.Resolve(entry.ItemID, prices)
			items = append(items, NewBankItem(bank.ID, entry, strategy, prices))
			strategies = append(strategies, strategy)
		}
		if err := tx.CreateItems(ctx, items); err != nil {
			return err
		}

		pass := priceItems(items, strategies, prices, passID, at)
		if err := tx.CreateSnapshots(ctx, pass.snapshots); err != nil {
			return err
		}

		result.Bank = bank
		result.ItemsImported = len(items)
		result.SnapshotsCreated = len(pass.snapshots)
		result.Untradeable = pass.untradeable
		result.Skipped = pass.skipped
		return nil
	})
	if err != nil {
		outcome := "failed"
		if errors.Is(err, ErrBankExists) {
			outcome = "rejected"
		}
		s.recordPass(passKindImport, outcome, start)
		return nil, err
	}

	s.recordPass(passKindImport, "success", start)
	metrics.SnapshotsWrittenTotal.Add(float64(result.SnapshotsCreated))
	s.refreshBankCount(ctx)

	log.Printf("Snapshot service: imported bank %q (%d items, %d snapshots, %d untradeable, %d skipped)",
		name, result.ItemsImported, result.SnapshotsCreated, result.Untradeable, result.Skipped)
	return result, nil
}

// RepriceBank records a new valuation of every item in the bank unless the
// bank was priced within the cooldown window
func (s *SnapshotService) RepriceBank(ctx context.Context, name string) (*RepriceResult, error) {
	bank, err := s.store.FindBank(ctx, name)
	if err != nil {
		return nil, err
	}

	// serialise passes of one bank so the second request sees the first one's rows
	mu := s.lockFor(bankLockKey(bank.Name))
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	now := s.now().UTC()
	result := &RepriceResult{Bank: bank.Name}

	last, err := s.store.LatestSnapshotTime(ctx, bank.ID)
	if err != nil {
		s.recordPass(passKindReprice, "failed", start)
		return nil, err
	}

	decision := s.gate.Evaluate(last, now)
	if !decision.Admitted {
		next := s.gate.NextAllowed(last, now)
		result.RemainingWait = decision.RemainingWait
		result.NextAllowedAt = &next
		s.recordPass(passKindReprice, "rejected", start)
		return result, nil
	}
	result.Admitted = true

	prices, err := s.prices.CurrentPrices(ctx)
	if err != nil {
		s.recordPass(passKindReprice, "failed", start)
		return nil, fmt.Errorf("%w: %w", ErrPriceFeedUnavailable, err)
	}

	passID := uuid.NewString()
	result.PassID = passID

	err = s.store.Transaction(ctx, func(tx *BankStore) error {
		items, err := tx.ItemsForBank(ctx, bank.ID)
		if err != nil {
			return err
		}

		strategies := make([]PricingStrategy, len(items))
		for i, item := range items {
			strategies[i] = StrategyForItem(item)
		}

		pass := priceItems(items, strategies, prices, passID, now)
		if err := tx.CreateSnapshots(ctx, pass.snapshots); err != nil {
			return err
		}

		result.SnapshotsCreated = len(pass.snapshots)
		result.Untradeable = pass.untradeable
		result.Skipped = pass.skipped
		return nil
	})
	if err != nil {
		s.recordPass(passKindReprice, "failed", start)
		return nil, err
	}

	s.recordPass(passKindReprice, "success", start)
	metrics.SnapshotsWrittenTotal.Add(float64(result.SnapshotsCreated))

	log.Printf("Snapshot service: re-priced bank %q (%d snapshots, %d untradeable, %d skipped)",
		bank.Name, result.SnapshotsCreated, result.Untradeable, result.Skipped)
	return result, nil
}

// RepriceAll requests a pass for every bank. Banks still inside the cooldown
// window are left alone; errors for one bank do not stop the others.
func (s *SnapshotService) RepriceAll(ctx context.Context) (repriced int, err error) {
	banks, err := s.store.ListBanks(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	for _, bank := range banks {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		result, err := s.RepriceBank(ctx, bank.Name)
		if err != nil {
			log.Printf("Snapshot service: failed to re-price bank %q: %v", bank.Name, err)
			errs = append(errs, fmt.Errorf("bank %q: %w", bank.Name, err))
			continue
		}
		if result.Admitted {
			repriced++
		}
	}

	return repriced, errors.Join(errs...)
}

// Start runs RepriceAll on startup and then on every interval until ctx is cancelled
func (s *SnapshotService) Start(ctx context.Context) {
	log.Printf("Snapshot service started: re-pricing banks every %v (cooldown %v)", s.interval, s.gate.Window())

	s.runScheduled(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot service stopping...")
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

func (s *SnapshotService) runScheduled(ctx context.Context) {
	repriced, err := s.RepriceAll(ctx)
	if err != nil {
		log.Printf("Snapshot service: scheduled re-pricing finished with errors: %v", err)
	}
	if repriced > 0 {
		log.Printf("Snapshot service: scheduled re-pricing updated %d banks", repriced)
	}
}

// DeleteBank removes a bank and everything recorded for it
func (s *SnapshotService) DeleteBank(ctx context.Context, name string) error {
	bank, err := s.store.FindBank(ctx, name)
	if err != nil {
		return err
	}

	mu := s.lockFor(bankLockKey(bank.Name))
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.DeleteBank(ctx, bank.Name); err != nil {
		return err
	}

	ForgetBank(bank.Name)
	s.refreshBankCount(ctx)
	log.Printf("Snapshot service: deleted bank %q", bank.Name)
	return nil
}

// priceItems values every item with its strategy. Untradeable items and items
// whose markets are missing from the table are counted and left without a
// snapshot.
func priceItems(items []models.BankItem, strategies []PricingStrategy, prices models.PriceTable, passID string, at time.Time) pricedPass {
	var pass pricedPass
	for i, item := range items {
		valuation, err := Value(strategies[i], item.Quantity, prices)
		if err != nil {
			var missing *MissingMarketError
			switch {
			case errors.Is(err, ErrNotPriceable):
				pass.untradeable++
				metrics.ItemsSkippedTotal.WithLabelValues("untradeable").Inc()
			case errors.As(err, &missing):
				log.Printf("Snapshot service: skipping %q (item %d): %v", item.Name, item.ItemID, err)
				pass.skipped++
				metrics.ItemsSkippedTotal.WithLabelValues("missing_market").Inc()
			default:
				log.Printf("Snapshot service: skipping %q (item %d): %v", item.Name, item.ItemID, err)
				pass.skipped++
			}
			continue
		}
		pass.snapshots = append(pass.snapshots, valuation.Snapshot(item, passID, at))
	}
	return pass
}

func (s *SnapshotService) recordPass(kind, result string, start time.Time) {
	metrics.SnapshotPassesTotal.WithLabelValues(kind, result).Inc()
	if result == "success" {
		metrics.SnapshotPassDuration.Observe(time.Since(start).Seconds())
	}
}

func (s *SnapshotService) refreshBankCount(ctx context.Context) {
	count, err := s.store.CountBanks(ctx)
	if err != nil {
		log.Printf("Snapshot service: failed to count banks: %v", err)
		return
	}
	metrics.BanksTotal.Set(float64(count))
}

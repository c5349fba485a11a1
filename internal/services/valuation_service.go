package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"

	"github.com/codyseavey/bank-tracker/internal/metrics"
	"github.com/codyseavey/bank-tracker/internal/models"
)

const defaultTotalsCacheSize = 256

// ValuationService reads persisted snapshots and reduces them to bank totals,
// per-item valuations and comparisons. It never re-resolves pricing strategies.
type ValuationService struct {
	store  *BankStore
	totals *lru.Cache[string, models.ValueTotals]
}

func NewValuationService(store *BankStore, cacheSize int) *ValuationService {
	if cacheSize <= 0 {
		cacheSize = defaultTotalsCacheSize
	}
	cache, err := lru.New[string, models.ValueTotals](cacheSize)
	if err != nil {
		// only possible with a non-positive size
		panic(fmt.Sprintf("valuation service: %v", err))
	}
	return &ValuationService{store: store, totals: cache}
}

// totalsKey changes whenever a new pass is written, so cached totals never
// need explicit invalidation
func totalsKey(bankID uint, latest time.Time) string {
	return fmt.Sprintf("%d:%d", bankID, latest.UnixNano())
}

// BankValuation returns the totals and the per-item valuations of a bank. Items
// without any snapshot are left out of Items and contribute nothing to Totals.
func (s *ValuationService) BankValuation(ctx context.Context, name string) (*models.BankValuation, error) {
	bank, err := s.store.FindBank(ctx, name)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ItemsForBank(ctx, bank.ID)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestSnapshots(ctx, bank.ID)
	if err != nil {
		return nil, err
	}

	valuation := &models.BankValuation{
		Bank:       *bank,
		Items:      []models.ItemValuation{},
		TotalItems: len(items),
	}

	var newest time.Time
	for _, item := range items {
		snap, ok := latest[item.ID]
		if !ok {
			continue
		}
		valuation.Totals.Add(snap)
		valuation.PricedItems++
		valuation.Items = append(valuation.Items, models.ItemValuation{
			Name:      item.Name,
			Quantity:  item.Quantity,
			LowValue:  snap.LowValueEstimate,
			MeanValue: snap.MeanValueEstimate,
			HighValue: snap.HighValueEstimate,
		})
		if snap.Timestamp.After(newest) {
			newest = snap.Timestamp
		}
	}

	if !newest.IsZero() {
		s.totals.Add(totalsKey(bank.ID, newest), valuation.Totals)
	}
	publishBankValue(bank.Name, valuation.Totals)

	return valuation, nil
}

// Totals sums the latest snapshot of every item in the bank
func (s *ValuationService) Totals(ctx context.Context, name string) (models.ValueTotals, error) {
	bank, err := s.store.FindBank(ctx, name)
	if err != nil {
		return models.ValueTotals{}, err
	}

	newest, err := s.store.LatestSnapshotTime(ctx, bank.ID)
	if err != nil {
		return models.ValueTotals{}, err
	}
	if newest.IsZero() {
		return models.ValueTotals{}, nil
	}

	key := totalsKey(bank.ID, newest)
	if totals, ok := s.totals.Get(key); ok {
		return totals, nil
	}

	latest, err := s.store.LatestSnapshots(ctx, bank.ID)
	if err != nil {
		return models.ValueTotals{}, err
	}

	var totals models.ValueTotals
	for _, snap := range latest {
		totals.Add(snap)
	}
	s.totals.Add(key, totals)
	publishBankValue(bank.Name, totals)

	return totals, nil
}

// ItemValuations lists name, quantity and latest estimates of every priced item
func (s *ValuationService) ItemValuations(ctx context.Context, name string) ([]models.ItemValuation, error) {
	valuation, err := s.BankValuation(ctx, name)
	if err != nil {
		return nil, err
	}
	return valuation.Items, nil
}

// CompareBanks outer-joins the priced items of two banks by name. Items held in
// several slots of one bank are summed first.
func (s *ValuationService) CompareBanks(ctx context.Context, nameA, nameB string, field models.ValuationField) (*models.BankComparison, error) {
	a, err := s.BankValuation(ctx, nameA)
	if err != nil {
		return nil, err
	}
	b, err := s.BankValuation(ctx, nameB)
	if err != nil {
		return nil, err
	}

	sideA := sumByName(a.Items, field)
	sideB := sumByName(b.Items, field)

	names := make([]string, 0, len(sideA)+len(sideB))
	for n := range sideA {
		names = append(names, n)
	}
	for n := range sideB {
		if _, ok := sideA[n]; !ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	cmp := &models.BankComparison{
		BankA:   a.Bank.Name,
		BankB:   b.Bank.Name,
		Field:   field,
		TotalsA: a.Totals,
		TotalsB: b.Totals,
		Rows:    make([]models.ComparisonRow, 0, len(names)),
	}
	for _, n := range names {
		cmp.Rows = append(cmp.Rows, compareRow(n, a.Bank.Name, b.Bank.Name, sideA[n], sideB[n]))
	}
	return cmp, nil
}

type comparedSide struct {
	quantity int
	value    decimal.Decimal
}

func sumByName(items []models.ItemValuation, field models.ValuationField) map[string]*comparedSide {
	out := make(map[string]*comparedSide, len(items))
	for _, item := range items {
		side, ok := out[item.Name]
		if !ok {
			side = &comparedSide{}
			out[item.Name] = side
		}
		side.quantity += item.Quantity
		side.value = side.value.Add(field.Pick(item))
	}
	return out
}

func compareRow(name, bankA, bankB string, a, b *comparedSide) models.ComparisonRow {
	row := models.ComparisonRow{Name: name}

	var qa, qb int
	va, vb := decimal.Zero, decimal.Zero
	if a != nil {
		qa, va = a.quantity, a.value
		row.QuantityA = &a.quantity
		row.ValueA = &a.value
	}
	if b != nil {
		qb, vb = b.quantity, b.value
		row.QuantityB = &b.quantity
		row.ValueB = &b.value
	}

	row.QuantityDiff = qa - qb
	if row.QuantityDiff < 0 {
		row.QuantityDiff = -row.QuantityDiff
	}
	row.ValueDiff = va.Sub(vb).Abs()

	switch {
	case a == nil:
		row.QuantityDirection = fmt.Sprintf("'%s' missing", bankA)
	case b == nil:
		row.QuantityDirection = fmt.Sprintf("'%s' missing", bankB)
	case qa > qb:
		row.QuantityDirection = fmt.Sprintf("'%s' higher", bankA)
	case qa < qb:
		row.QuantityDirection = fmt.Sprintf("'%s' higher", bankB)
	default:
		row.QuantityDirection = "No Difference"
	}
	return row
}

// ItemHistory returns every snapshot of the named item, oldest first
func (s *ValuationService) ItemHistory(ctx context.Context, bankName, itemName string) ([]models.ItemHistoryRow, error) {
	bank, err := s.store.FindBank(ctx, bankName)
	if err != nil {
		return nil, err
	}

	snaps, err := s.store.ItemSnapshots(ctx, bank.ID, itemName)
	if err != nil {
		return nil, err
	}

	rows := make([]models.ItemHistoryRow, 0, len(snaps))
	for _, snap := range snaps {
		single := decimal.Zero
		if snap.Quantity != 0 {
			single = snap.MeanValueEstimate.Div(decimal.NewFromInt(int64(snap.Quantity)))
		}
		rows = append(rows, models.ItemHistoryRow{
			ItemName:          snap.ItemName,
			Quantity:          snap.Quantity,
			SingleItemPrice:   single,
			LowValueEstimate:  snap.LowValueEstimate,
			MeanValueEstimate: snap.MeanValueEstimate,
			HighValueEstimate: snap.HighValueEstimate,
			Timestamp:         snap.Timestamp,
		})
	}
	return rows, nil
}

// SimilarItems returns up to ten item names in the bank containing fragment
func (s *ValuationService) SimilarItems(ctx context.Context, bankName, fragment string) ([]string, error) {
	bank, err := s.store.FindBank(ctx, bankName)
	if err != nil {
		return nil, err
	}
	return s.store.SimilarItemNames(ctx, bank.ID, fragment)
}

// SearchItem returns the history of an exact name match, or similar names when
// the query matches nothing exactly
func (s *ValuationService) SearchItem(ctx context.Context, bankName, query string) (*models.ItemSearchResponse, error) {
	query = strings.TrimSpace(query)
	resp := &models.ItemSearchResponse{Query: query}

	history, err := s.ItemHistory(ctx, bankName, query)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		resp.ExactMatch = true
		resp.History = history
		return resp, nil
	}

	resp.SimilarNames, err = s.SimilarItems(ctx, bankName, query)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// BankHistory returns the bank totals recorded by each pass, oldest first.
// Rows written before passes carried an id are grouped by timestamp.
func (s *ValuationService) BankHistory(ctx context.Context, name string) (*models.BankHistoryResponse, error) {
	bank, err := s.store.FindBank(ctx, name)
	if err != nil {
		return nil, err
	}

	snaps, err := s.store.SnapshotsForBank(ctx, bank.ID)
	if err != nil {
		return nil, err
	}

	resp := &models.BankHistoryResponse{Bank: bank.Name, Points: []models.BankHistoryPoint{}}
	index := make(map[string]int)
	for _, snap := range snaps {
		key := snap.PassID
		if key == "" {
			key = snap.Timestamp.UTC().Format(time.RFC3339Nano)
		}

		i, ok := index[key]
		if !ok {
			i = len(resp.Points)
			index[key] = i
			resp.Points = append(resp.Points, models.BankHistoryPoint{
				PassID:    snap.PassID,
				Timestamp: snap.Timestamp,
			})
		}
		resp.Points[i].Items++
		resp.Points[i].Totals.Add(snap)
	}

	return resp, nil
}

func publishBankValue(bank string, totals models.ValueTotals) {
	metrics.BankValue.WithLabelValues(bank, "low").Set(float64(totals.Low))
	metrics.BankValue.WithLabelValues(bank, "mean").Set(totals.Mean.InexactFloat64())
	metrics.BankValue.WithLabelValues(bank, "high").Set(float64(totals.High))
}

// ForgetBank drops the exported gauges of a deleted bank
func ForgetBank(bank string) {
	for _, estimate := range []string{"low", "mean", "high"} {
		metrics.BankValue.DeleteLabelValues(bank, estimate)
	}
}

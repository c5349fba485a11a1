package services

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/codyseavey/bank-tracker/internal/metrics"
	"github.com/codyseavey/bank-tracker/internal/models"
)

const inventoryColumns = 3

// ParseResult holds the entries of an inventory dump and the lines that were dropped
type ParseResult struct {
	Entries        []models.InventoryEntry
	Malformed      int
	MalformedLines []string
}

// ParseInventoryTSV reads a bank dump exported by the RuneLite bank plugin: a
// header line followed by "itemId<TAB>itemName<TAB>quantity" rows. Lines with
// the wrong column count or non-numeric id/quantity are skipped and counted.
// Blank lines are ignored.
func ParseInventoryTSV(r io.Reader) (*ParseResult, error) {
	result := &ParseResult{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	header := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, err := parseInventoryLine(line)
		if err != nil {
			log.Printf("Inventory parser: skipping malformed line %q: %v", line, err)
			result.Malformed++
			result.MalformedLines = append(result.MalformedLines, line)
			metrics.InventoryLinesMalformedTotal.Inc()
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	return result, nil
}

func parseInventoryLine(line string) (models.InventoryEntry, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != inventoryColumns {
		return models.InventoryEntry{}, fmt.Errorf("expected %d columns, got %d", inventoryColumns, len(parts))
	}

	itemID, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return models.InventoryEntry{}, fmt.Errorf("invalid item id: %w", err)
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return models.InventoryEntry{}, fmt.Errorf("invalid quantity: %w", err)
	}
	if quantity < 0 {
		return models.InventoryEntry{}, fmt.Errorf("negative quantity %d", quantity)
	}

	return models.InventoryEntry{
		ItemID:   itemID,
		ItemName: parts[1],
		Quantity: quantity,
	}, nil
}

// LooksLikeTSV is a cheap check for pasted text: at least two non-blank lines
// containing tabs, all with roughly the same number of columns.
func LooksLikeTSV(text string) bool {
	if !strings.Contains(text, "\t") || !strings.Contains(text, "\n") {
		return false
	}

	var counts []int
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		counts = append(counts, len(strings.Split(strings.TrimRight(line, "\r"), "\t")))
	}
	if len(counts) < 2 {
		return false
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	avg := float64(total) / float64(len(counts))
	for _, c := range counts {
		diff := float64(c) - avg
		if diff <= -1 || diff >= 1 {
			return false
		}
	}
	return true
}

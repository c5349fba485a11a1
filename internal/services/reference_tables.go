package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	unchargedTableFile = "tradeable_if_uncharged.json"
	ornamentTableFile  = "item_plus_ornament_kit.json"

	// kitKeyPrefix marks the ornament table entry holding the kit of a base item
	kitKeyPrefix = "kit_"
)

// ReferenceTables holds the static lookup tables used to price items that are
// not directly listed on the exchange. They are read once and never mutated.
type ReferenceTables struct {
	uncharged map[string]string // charged item id -> uncharged item id
	ornament  map[string]string // item id -> base item id, "kit_"+item id -> kit id
}

// NewReferenceTables copies the given tables. Nil maps are treated as empty.
func NewReferenceTables(uncharged, ornament map[string]string) *ReferenceTables {
	t := &ReferenceTables{
		uncharged: make(map[string]string, len(uncharged)),
		ornament:  make(map[string]string, len(ornament)),
	}
	for k, v := range uncharged {
		t.uncharged[k] = v
	}
	for k, v := range ornament {
		t.ornament[k] = v
	}
	return t
}

// LoadReferenceTables reads both tables from dataDir. The files are JSON; since
// every JSON document is also YAML they are decoded with a YAML parser, which
// lets maintainers annotate entries with # comments.
func LoadReferenceTables(dataDir string) (*ReferenceTables, error) {
	uncharged, err := readTable(filepath.Join(dataDir, unchargedTableFile))
	if err != nil {
		return nil, err
	}
	ornament, err := readTable(filepath.Join(dataDir, ornamentTableFile))
	if err != nil {
		return nil, err
	}

	t := NewReferenceTables(uncharged, ornament)
	if problems := t.Validate(); len(problems) > 0 {
		for _, p := range problems {
			log.Printf("Reference tables: %s", p)
		}
	}
	return t, nil
}

func readTable(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table %s: %w", path, err)
	}

	table := make(map[string]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse reference table %s: %w", path, err)
	}
	return table, nil
}

// Validate reports entries that can never produce a price: non-numeric ids and
// ornamented items without a kit entry. Problems are not fatal; the affected
// items are skipped when valued.
func (t *ReferenceTables) Validate() []string {
	var problems []string

	for k, v := range t.uncharged {
		if _, err := strconv.Atoi(v); err != nil {
			problems = append(problems, fmt.Sprintf("uncharged form of %s is not a numeric id: %q", k, v))
		}
	}

	for k, v := range t.ornament {
		if _, err := strconv.Atoi(v); err != nil {
			problems = append(problems, fmt.Sprintf("ornament entry %s is not a numeric id: %q", k, v))
		}
		if strings.HasPrefix(k, kitKeyPrefix) {
			if _, ok := t.ornament[strings.TrimPrefix(k, kitKeyPrefix)]; !ok {
				problems = append(problems, fmt.Sprintf("kit entry %s has no base item entry", k))
			}
			continue
		}
		if _, ok := t.ornament[kitKeyPrefix+k]; !ok {
			problems = append(problems, fmt.Sprintf("ornamented item %s has no %s%s entry", k, kitKeyPrefix, k))
		}
	}

	return problems
}

// UnchargedID returns the uncharged form of a charged item
func (t *ReferenceTables) UnchargedID(itemID string) (string, bool) {
	id, ok := t.uncharged[itemID]
	return id, ok
}

// HasOrnament reports whether the item is listed as base item plus ornament kit
func (t *ReferenceTables) HasOrnament(itemID string) bool {
	if strings.HasPrefix(itemID, kitKeyPrefix) {
		return false
	}
	_, ok := t.ornament[itemID]
	return ok
}

// OrnamentParts returns the base item and kit market ids of an ornamented item.
// kit is empty when the table lists the item without its kit entry.
func (t *ReferenceTables) OrnamentParts(itemID string) (base, kit string, ok bool) {
	if !t.HasOrnament(itemID) {
		return "", "", false
	}
	return t.ornament[itemID], t.ornament[kitKeyPrefix+itemID], true
}

// Sizes returns the number of entries in each table, for startup logging
func (t *ReferenceTables) Sizes() (uncharged, ornament int) {
	return len(t.uncharged), len(t.ornament)
}

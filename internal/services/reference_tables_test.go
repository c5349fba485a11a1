package services

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTable(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoadReferenceTables(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, unchargedTableFile, `{
  # toxic blowpipe
  "12926": "12924"
}`)
	writeTable(t, dir, ornamentTableFile, `{
  "12436": "6585",
  "kit_12436": "12526"
}`)

	tables, err := LoadReferenceTables(dir)
	if err != nil {
		t.Fatalf("LoadReferenceTables() error = %v", err)
	}

	if id, ok := tables.UnchargedID("12926"); !ok || id != "12924" {
		t.Errorf("UnchargedID(12926) = %q, %v", id, ok)
	}
	base, kit, ok := tables.OrnamentParts("12436")
	if !ok || base != "6585" || kit != "12526" {
		t.Errorf("OrnamentParts(12436) = %q, %q, %v", base, kit, ok)
	}
	if tables.HasOrnament("kit_12436") {
		t.Error("kit entries must not be treated as ornamented items")
	}
	if u, o := tables.Sizes(); u != 1 || o != 2 {
		t.Errorf("Sizes() = %d, %d; want 1, 2", u, o)
	}
}

func TestLoadReferenceTablesShippedData(t *testing.T) {
	tables, err := LoadReferenceTables(filepath.Join("..", "..", "data"))
	if err != nil {
		t.Fatalf("LoadReferenceTables() error = %v", err)
	}
	if problems := tables.Validate(); len(problems) > 0 {
		t.Errorf("shipped tables have problems: %v", problems)
	}
}

func TestLoadReferenceTablesErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadReferenceTables(t.TempDir()); err == nil {
			t.Error("expected error for missing tables")
		}
	})

	t.Run("invalid content", func(t *testing.T) {
		dir := t.TempDir()
		writeTable(t, dir, unchargedTableFile, `{"12926": [1, 2]}`)
		writeTable(t, dir, ornamentTableFile, `{}`)
		if _, err := LoadReferenceTables(dir); err == nil {
			t.Error("expected error for a non-string value")
		}
	})
}

func TestReferenceTablesValidate(t *testing.T) {
	tables := NewReferenceTables(
		map[string]string{"1": "2", "3": "abc"},
		map[string]string{"10": "11", "kit_10": "12", "20": "21", "kit_30": "31"},
	)

	problems := tables.Validate()
	sort.Strings(problems)

	want := []string{
		`kit entry kit_30 has no base item entry`,
		`ornamented item 20 has no kit_20 entry`,
		`uncharged form of 3 is not a numeric id: "abc"`,
	}
	if len(problems) != len(want) {
		t.Fatalf("Validate() = %v, want %v", problems, want)
	}
	for i := range want {
		if problems[i] != want[i] {
			t.Errorf("problem %d = %q, want %q", i, problems[i], want[i])
		}
	}
}

func TestNewReferenceTablesCopies(t *testing.T) {
	src := map[string]string{"1": "2"}
	tables := NewReferenceTables(src, nil)
	src["1"] = "3"

	if id, _ := tables.UnchargedID("1"); id != "2" {
		t.Errorf("tables changed with their source map: got %q", id)
	}
}

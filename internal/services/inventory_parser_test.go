package services

import (
	"strings"
	"testing"

	"github.com/codyseavey/bank-tracker/internal/models"
)

func TestParseInventoryTSV(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantEntries   []models.InventoryEntry
		wantMalformed int
	}{
		{
			name:  "header and rows",
			input: "Item id\tItem name\tItem quantity\n995\tCoins\t1000000\n4151\tAbyssal whip\t2\n",
			wantEntries: []models.InventoryEntry{
				{ItemID: 995, ItemName: "Coins", Quantity: 1_000_000},
				{ItemID: 4151, ItemName: "Abyssal whip", Quantity: 2},
			},
		},
		{
			name:  "windows line endings",
			input: "id\tname\tqty\r\n4151\tAbyssal whip\t1\r\n",
			wantEntries: []models.InventoryEntry{
				{ItemID: 4151, ItemName: "Abyssal whip", Quantity: 1},
			},
		},
		{
			name:  "blank lines ignored",
			input: "id\tname\tqty\n\n4151\tAbyssal whip\t1\n   \n",
			wantEntries: []models.InventoryEntry{
				{ItemID: 4151, ItemName: "Abyssal whip", Quantity: 1},
			},
		},
		{
			name:          "malformed lines skipped",
			input:         "id\tname\tqty\nabc\tBad id\t1\n4151\tAbyssal whip\tmany\n4151\tAbyssal whip\n4151\tAbyssal whip\t1\textra\n11840\tDragon boots\t1\n",
			wantEntries:   []models.InventoryEntry{{ItemID: 11840, ItemName: "Dragon boots", Quantity: 1}},
			wantMalformed: 4,
		},
		{
			name:          "negative quantity",
			input:         "id\tname\tqty\n4151\tAbyssal whip\t-1\n",
			wantMalformed: 1,
		},
		{
			name:  "zero quantity kept",
			input: "id\tname\tqty\n4151\tAbyssal whip\t0\n",
			wantEntries: []models.InventoryEntry{
				{ItemID: 4151, ItemName: "Abyssal whip", Quantity: 0},
			},
		},
		{
			name:  "header only",
			input: "id\tname\tqty\n",
		},
		{
			name:  "empty input",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInventoryTSV(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseInventoryTSV() error = %v", err)
			}
			if got.Malformed != tt.wantMalformed || len(got.MalformedLines) != tt.wantMalformed {
				t.Errorf("Malformed = %d (%d lines), want %d", got.Malformed, len(got.MalformedLines), tt.wantMalformed)
			}
			if len(got.Entries) != len(tt.wantEntries) {
				t.Fatalf("got %d entries, want %d: %+v", len(got.Entries), len(tt.wantEntries), got.Entries)
			}
			for i, want := range tt.wantEntries {
				if got.Entries[i] != want {
					t.Errorf("entry %d = %+v, want %+v", i, got.Entries[i], want)
				}
			}
		})
	}
}

func TestLooksLikeTSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"bank dump", "id\tname\tqty\n4151\tAbyssal whip\t1\n", true},
		{"single line", "4151\tAbyssal whip\t1", false},
		{"no tabs", "id,name,qty\n4151,Abyssal whip,1\n", false},
		{"ragged columns", "a\tb\tc\td\ne\n", false},
		{"plain text", "hello\nworld\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeTSV(tt.input); got != tt.want {
				t.Errorf("LooksLikeTSV(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

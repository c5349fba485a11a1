// import-bank imports a RuneLite bank dump (TSV) into the bank tracker database
// and records its first valuation, without running the server.
//
// Usage: import-bank -db=<path> -data=<dir> -file=<dump.tsv> -name=<bank> [-dry-run]
//
// With -dry-run the dump is parsed and classified against the current prices
// but nothing is written.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/codyseavey/bank-tracker/internal/database"
	"github.com/codyseavey/bank-tracker/internal/models"
	"github.com/codyseavey/bank-tracker/internal/services"
)

func main() {
	dbPath := flag.String("db", "./bank_tracker.db", "Path to SQLite database")
	driver := flag.String("driver", database.DriverSQLite, "Database driver (sqlite or mysql)")
	dataDir := flag.String("data", "./data", "Directory holding the reference tables")
	file := flag.String("file", "", "Bank dump to import (required)")
	name := flag.String("name", "", "Name of the new bank (required)")
	feedURL := flag.String("feed", services.DefaultPriceFeedURL, "Latest prices endpoint")
	dryRun := flag.Bool("dry-run", false, "Classify items without modifying the database")
	flag.Parse()

	if *file == "" || *name == "" {
		fmt.Println("Usage: import-bank -file=<dump.tsv> -name=<bank> [options]")
		fmt.Println("")
		fmt.Println("Imports a bank dump exported by the RuneLite bank plugin and records")
		fmt.Println("its first price snapshot.")
		fmt.Println("")
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Println("  # Preview how each item would be priced")
		fmt.Println("  import-bank -file=./bank.tsv -name=Main -dry-run")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read bank dump: %v", err)
	}
	if !services.LooksLikeTSV(string(data)) {
		log.Printf("Warning: %s does not look like a tab separated bank dump", *file)
	}
	parsed, err := services.ParseInventoryTSV(bytes.NewReader(data))
	if err != nil {
		log.Fatalf("Failed to parse bank dump: %v", err)
	}
	log.Printf("Parsed %d items (%d malformed lines skipped)", len(parsed.Entries), parsed.Malformed)

	tables, err := services.LoadReferenceTables(*dataDir)
	if err != nil {
		log.Fatalf("Failed to load reference tables: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	feed := services.NewWikiPriceClient(*feedURL, "", 0)
	resolver := services.NewResolver(tables)

	if *dryRun {
		prices, err := feed.FetchLatest(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch prices: %v", err)
		}
		printDryRun(parsed.Entries, resolver, prices)
		return
	}

	if err := database.Initialize(*driver, *dbPath, "warn", tables.OrnamentParts); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	priceCache := services.NewPriceCache(feed, services.NewDBCacheStore(db), services.DefaultPriceCacheTTL)
	snapshots := services.NewSnapshotService(services.NewBankStore(db), priceCache, resolver, nil)

	result, err := snapshots.ImportBank(ctx, *name, parsed.Entries)
	if errors.Is(err, services.ErrBankExists) {
		log.Fatalf("A bank named %q already exists", *name)
	}
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("Imported bank %q\n", result.Bank.Name)
	fmt.Printf("  Items:        %d\n", result.ItemsImported)
	fmt.Printf("  Snapshots:    %d\n", result.SnapshotsCreated)
	fmt.Printf("  Untradeable:  %d\n", result.Untradeable)
	fmt.Printf("  Skipped:      %d\n", result.Skipped)
}

func printDryRun(entries []models.InventoryEntry, resolver *services.Resolver, prices models.PriceTable) {
	counts := make(map[models.PriceCategory]int)
	var missing []string

	for _, e := range entries {
		strategy := resolver.Resolve(e.ItemID, prices)
		counts[strategy.Category]++

		var mme *services.MissingMarketError
		if _, err := services.Value(strategy, e.Quantity, prices); errors.As(err, &mme) {
			missing = append(missing, fmt.Sprintf("%s (%d): %v", e.ItemName, e.ItemID, err))
		}
	}

	fmt.Println("Classification:")
	for _, c := range models.AllPriceCategories() {
		fmt.Printf("  %-14s %d\n", c, counts[c])
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		fmt.Printf("\n%d items would be skipped:\n", len(missing))
		for _, m := range missing {
			fmt.Printf("  %s\n", m)
		}
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codyseavey/bank-tracker/internal/api"
	"github.com/codyseavey/bank-tracker/internal/config"
	"github.com/codyseavey/bank-tracker/internal/database"
	"github.com/codyseavey/bank-tracker/internal/services"
)

func main() {
	cfg := config.Load()

	// Reference tables are needed by the legacy category backfill
	tables, err := services.LoadReferenceTables(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to load reference tables: %v", err)
	}
	uncharged, ornament := tables.Sizes()
	log.Printf("Loaded %d uncharged-form entries and %d ornament-kit entries from %s", uncharged, ornament, cfg.DataDir)

	if err := database.Initialize(cfg.DBDriver, cfg.DBPath, cfg.DBLogLevel, tables.OrnamentParts); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	cacheStore, err := services.NewCacheStore(cfg.PriceCacheBackend, db, cfg.PriceCacheFile, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to initialize price cache: %v", err)
	}
	log.Printf("Price cache: using %s store with TTL %v", cacheStore.Name(), cfg.PriceCacheTTL)

	feed := services.NewWikiPriceClient(cfg.PriceFeedURL, cfg.PriceFeedUserAgent, cfg.PriceFeedMinInterval)
	priceCache := services.NewPriceCache(feed, cacheStore, cfg.PriceCacheTTL)

	store := services.NewBankStore(db)
	resolver := services.NewResolver(tables)
	gate := services.NewCooldownGate(cfg.SnapshotCooldown)
	snapshotService := services.NewSnapshotService(store, priceCache, resolver, gate)
	snapshotService.SetInterval(cfg.AutoRepriceInterval)
	valuationService := services.NewValuationService(store, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the re-pricing worker in background with panic recovery
	if cfg.AutoReprice {
		go func() {
			for {
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in snapshot worker: %v - restarting in 30 seconds", r)
						}
					}()
					snapshotService.Start(ctx)
				}()

				select {
				case <-ctx.Done():
					return
				case <-time.After(30 * time.Second):
					log.Println("Snapshot worker restarting after panic recovery...")
				}
			}
		}()
	}

	router := api.SetupRouter(api.RouterOptions{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		FrontendDistPath: cfg.FrontendDistPath,
		AutoReprice:      cfg.AutoReprice,
	}, store, snapshotService, valuationService, priceCache)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if closer, ok := cacheStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Printf("Failed to close price cache store: %v", err)
		}
	}

	log.Println("Server exited")
}

package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/bank-tracker/internal/api/handlers"
	"github.com/codyseavey/bank-tracker/internal/metrics"
	"github.com/codyseavey/bank-tracker/internal/services"
)

// RouterOptions carries the server settings the router needs
type RouterOptions struct {
	AllowedOrigins   []string
	FrontendDistPath string
	AutoReprice      bool
}

func SetupRouter(opts RouterOptions, store *services.BankStore, snapshots *services.SnapshotService, valuations *services.ValuationService, priceCache *services.PriceCache) *gin.Engine {
	router := gin.Default()

	serveFrontend := opts.FrontendDistPath != "" && dirExists(opts.FrontendDistPath)

	config := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		config.AllowOrigins = opts.AllowedOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))
	router.Use(metricsMiddleware())

	bankHandler := handlers.NewBankHandler(store, snapshots, valuations)
	valuationHandler := handlers.NewValuationHandler(valuations)
	priceHandler := handlers.NewPriceHandler(priceCache, snapshots, opts.AutoReprice)

	api := router.Group("/api")
	{
		banks := api.Group("/banks")
		{
			banks.GET("", bankHandler.ListBanks)
			banks.POST("", bankHandler.ImportBank)
			banks.DELETE("/:name", bankHandler.DeleteBank)
			banks.GET("/:name/items", bankHandler.GetBankItems)
			banks.GET("/:name/items/search", valuationHandler.SearchItems)
			banks.POST("/:name/reprice", bankHandler.RepriceBank)
			banks.GET("/:name/valuation", valuationHandler.GetValuation)
			banks.GET("/:name/history", valuationHandler.GetHistory)
			banks.GET("/:name/export", valuationHandler.ExportBank)
		}

		api.GET("/compare", valuationHandler.CompareBanks)

		prices := api.Group("/prices")
		{
			prices.GET("/status", priceHandler.GetPriceStatus)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if serveFrontend {
		indexPath := filepath.Join(opts.FrontendDistPath, "index.html")

		router.Static("/assets", filepath.Join(opts.FrontendDistPath, "assets"))

		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

// metricsMiddleware records request counts and latency by route pattern so bank
// names do not explode label cardinality
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

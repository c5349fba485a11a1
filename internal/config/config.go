package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	// Server
	Port               string
	CORSAllowedOrigins []string
	FrontendDistPath   string

	// Database
	DBDriver   string
	DBPath     string
	DBLogLevel string

	// Reference tables
	DataDir string

	// Price feed
	PriceFeedURL         string
	PriceFeedUserAgent   string
	PriceFeedMinInterval time.Duration

	// Price cache
	PriceCacheTTL     time.Duration
	PriceCacheBackend string
	PriceCacheFile    string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Snapshots
	SnapshotCooldown    time.Duration
	AutoReprice         bool
	AutoRepriceInterval time.Duration
}

// Load reads configuration from the environment, after loading a .env file from
// the working directory when one exists
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Config: failed to load .env file: %v", err)
	}

	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}, ","),
		FrontendDistPath:   getEnv("FRONTEND_DIST_PATH", ""),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DATABASE_URL", getEnv("DB_PATH", "./bank_tracker.db")),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),

		DataDir: dataDir,

		PriceFeedURL:         getEnv("PRICE_FEED_URL", ""),
		PriceFeedUserAgent:   getEnv("PRICE_FEED_USER_AGENT", ""),
		PriceFeedMinInterval: getEnvAsDuration("PRICE_FEED_MIN_INTERVAL", 10*time.Second),

		PriceCacheTTL:     getEnvAsDuration("PRICE_CACHE_TTL", 3*time.Hour),
		PriceCacheBackend: getEnv("PRICE_CACHE_BACKEND", "db"),
		PriceCacheFile:    getEnv("PRICE_CACHE_FILE", "./cache/prices_cache.json"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SnapshotCooldown:    getEnvAsDuration("SNAPSHOT_COOLDOWN", 12*time.Hour),
		AutoReprice:         getEnvAsBool("AUTO_REPRICE", false),
		AutoRepriceInterval: getEnvAsDuration("AUTO_REPRICE_INTERVAL", time.Hour),
	}
}

// Helper functions for parsing environment variables
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

// getEnvAsDuration accepts Go durations ("90m") or a bare number of seconds
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(valStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Config: invalid duration %s=%q, using %v", key, valStr, defaultVal)
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	parts := strings.Split(valStr, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "PRICE_CACHE_TTL", "SNAPSHOT_COOLDOWN", "AUTO_REPRICE", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("DBDriver = %q, want sqlite", cfg.DBDriver)
	}
	if cfg.DBPath != "./bank_tracker.db" {
		t.Errorf("DBPath = %q, want ./bank_tracker.db", cfg.DBPath)
	}
	if cfg.PriceCacheTTL != 3*time.Hour {
		t.Errorf("PriceCacheTTL = %v, want 3h", cfg.PriceCacheTTL)
	}
	if cfg.SnapshotCooldown != 12*time.Hour {
		t.Errorf("SnapshotCooldown = %v, want 12h", cfg.SnapshotCooldown)
	}
	if cfg.AutoReprice {
		t.Error("AutoReprice should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/bank.db")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SNAPSHOT_COOLDOWN", "0")
	t.Setenv("PRICE_CACHE_TTL", "90m")
	t.Setenv("AUTO_REPRICE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.DBPath != "/tmp/bank.db" {
		t.Errorf("DBPath = %q, want /tmp/bank.db", cfg.DBPath)
	}
	if cfg.SnapshotCooldown != 0 {
		t.Errorf("SnapshotCooldown = %v, want 0", cfg.SnapshotCooldown)
	}
	if cfg.PriceCacheTTL != 90*time.Minute {
		t.Errorf("PriceCacheTTL = %v, want 90m", cfg.PriceCacheTTL)
	}
	if !cfg.AutoReprice {
		t.Error("AutoReprice = false, want true")
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Errorf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"2h", 2 * time.Hour},
		{"45", 45 * time.Second},
		{"soon", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getEnvAsDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

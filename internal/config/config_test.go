package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.HTTPAddr)
	}
	if cfg.HoldTTLSeconds != 900 {
		t.Errorf("expected hold TTL 900, got %d", cfg.HoldTTLSeconds)
	}
	if cfg.SweepIntervalSeconds != 60 {
		t.Errorf("expected sweep interval 60, got %d", cfg.SweepIntervalSeconds)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
httpAddr: ":9090"
holdTtlSeconds: 120
products:
  - id: item-1
    name: Phone
    pricePaise: 4999900
    stock: 25
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("expected :9090, got %q", cfg.HTTPAddr)
	}
	if cfg.HoldTTLSeconds != 120 {
		t.Errorf("expected hold TTL 120, got %d", cfg.HoldTTLSeconds)
	}
	// Untouched fields keep their defaults.
	if cfg.SweepIntervalSeconds != 60 {
		t.Errorf("expected sweep interval 60, got %d", cfg.SweepIntervalSeconds)
	}
	if len(cfg.Products) != 1 || cfg.Products[0].Stock != 25 {
		t.Errorf("unexpected products: %+v", cfg.Products)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis-prod:6379")
	t.Setenv("RAZORPAY_KEY_ID", "key_live_x")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RedisAddr != "redis-prod:6379" {
		t.Errorf("expected env override, got %q", cfg.RedisAddr)
	}
	if cfg.Razorpay.KeyID != "key_live_x" {
		t.Errorf("expected env override, got %q", cfg.Razorpay.KeyID)
	}
}

func TestLoad_InvalidTTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("holdTtlSeconds: -5\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for negative TTL")
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("PAIRS_TURN_TIMEOUT", "")
	t.Setenv("ROOM_SWEEP_INTERVAL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected default addr %q", cfg.ListenAddr)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("expected empty database url, got %q", cfg.DatabaseURL)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("expected no allowed origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.PairsTimeout != 60*time.Second {
		t.Fatalf("unexpected default pairs timeout %s", cfg.PairsTimeout)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Fatalf("unexpected default sweep interval %s", cfg.SweepInterval)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/parlor")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("PAIRS_TURN_TIMEOUT", "90s")
	t.Setenv("ROOM_SWEEP_INTERVAL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("unexpected addr %q", cfg.ListenAddr)
	}
	if cfg.DatabaseURL != "postgres://localhost/parlor" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://a.example" || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.PairsTimeout != 90*time.Second {
		t.Fatalf("unexpected pairs timeout %s", cfg.PairsTimeout)
	}
	if cfg.SweepInterval != 30*time.Minute {
		t.Fatalf("unexpected sweep interval %s", cfg.SweepInterval)
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	t.Setenv("PAIRS_TURN_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable timeout")
	}

	t.Setenv("PAIRS_TURN_TIMEOUT", "-1m")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative timeout")
	}

	t.Setenv("PAIRS_TURN_TIMEOUT", "60s")
	t.Setenv("ROOM_SWEEP_INTERVAL", "0s")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero sweep interval")
	}
}

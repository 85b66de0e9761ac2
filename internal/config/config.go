package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment. A .env
// file in the working directory is loaded first when present.
type Config struct {
	ListenAddr string
	// DatabaseURL is a postgres DSN. Empty selects the in-memory stores.
	DatabaseURL    string
	AllowedOrigins []string
	PairsTimeout   time.Duration
	SweepInterval  time.Duration
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:    ":8080",
		PairsTimeout:  60 * time.Second,
		SweepInterval: 5 * time.Minute,
	}

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if raw := os.Getenv("PAIRS_TURN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PAIRS_TURN_TIMEOUT %q: %w", raw, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("PAIRS_TURN_TIMEOUT must be positive, got %q", raw)
		}
		cfg.PairsTimeout = d
	}

	if raw := os.Getenv("ROOM_SWEEP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ROOM_SWEEP_INTERVAL %q: %w", raw, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("ROOM_SWEEP_INTERVAL must be positive, got %q", raw)
		}
		cfg.SweepInterval = d
	}

	return cfg, nil
}

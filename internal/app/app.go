package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"parlor/server/internal/config"
	"parlor/server/internal/hub"
	"parlor/server/internal/match"
	servernet "parlor/server/internal/net"
	"parlor/server/internal/net/ws"
	"parlor/server/internal/store"
)

const shutdownGrace = 5 * time.Second

// Run composes the server and blocks until ctx is cancelled or the listener
// fails.
func Run(ctx context.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stores, cleanup, err := openStores(cfg, logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer cleanup()

	sweeper, err := store.StartRoomSweeper(stores.Rooms, cfg.SweepInterval, logger)
	if err != nil {
		return fmt.Errorf("start room sweeper: %w", err)
	}
	defer func() {
		if err := sweeper.Shutdown(); err != nil {
			logger.Warn("room sweeper shutdown failed", "error", err)
		}
	}()

	registry := hub.NewRegistry(logger)
	coord := match.New(registry, stores, cfg.PairsTimeout, logger)
	wsHandler := ws.New(registry, coord, stores.Users, cfg.AllowedOrigins, logger)
	mux := servernet.NewMux(wsHandler, registry, coord, logger)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

// openStores selects gorm-backed stores when a database is configured and
// the in-memory stores otherwise. The returned cleanup closes whatever was
// opened.
func openStores(cfg config.Config, logger *slog.Logger) (store.Stores, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, using in-memory stores")
		return store.NewMemoryStores().Stores(), func() {}, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return store.Stores{}, nil, fmt.Errorf("open postgres: %w", err)
	}
	gs, err := store.NewGormStores(db)
	if err != nil {
		return store.Stores{}, nil, fmt.Errorf("migrate: %w", err)
	}
	cleanup := func() {
		sqlDB, err := db.DB()
		if err != nil {
			logger.Warn("failed to reach underlying sql.DB", "error", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}
	logger.Info("using postgres stores")
	return gs.Stores(), cleanup, nil
}

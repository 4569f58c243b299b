package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/api"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/config"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/factory"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/identity"
	redisstorage "github.com/TanvirAnzum/tic-tac-toe-server/internal/storage/redis"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	// Build factory config
	factoryCfg := factory.Config{
		Logger:        logger,
		StorageType:   cfg.StorageType,
		NotifyChannel: cfg.NotifyChannel,
		IdentityConfig: identity.Config{
			AccessTokenTTL: cfg.AccessTokenTTL,
		},
	}
	if cfg.StorageType == config.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.KeyPrefix = cfg.RedisKeyPrefix
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start notifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, admin routes disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Identity:   app.Identity,
		Sessions:   app.Sessions,
		Hub:        app.Hub,
		Registry:   app.Registry,
		AdminToken: cfg.AdminToken,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	go cleanTokens(ctx, app.Identity, cfg.TokenCleanupInterval, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		// Closing the hub ends open event streams so Shutdown can drain
		app.Hub.Close()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	if err := app.Close(); err != nil {
		logger.Error("close error", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	os.Exit(exitCode)
}

// cleanTokens periodically drops expired access tokens
func cleanTokens(ctx context.Context, identityService *identity.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := identityService.CleanExpiredTokens(); removed > 0 {
				logger.Debug("expired tokens removed", slog.Int("count", removed))
			}
		}
	}
}

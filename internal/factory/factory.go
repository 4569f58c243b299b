package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/config"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/dependencies/clock"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/dependencies/ids"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/notifier"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/observability"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/identity"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/session"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/storage"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/storage/memory"
	redisstorage "github.com/TanvirAnzum/tic-tac-toe-server/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock
	IDs   ids.Generator

	// Observability
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Notifications. Relay is nil unless moves fan out through Redis.
	Hub       *notifier.Hub
	Publisher notifier.Publisher
	Relay     *notifier.Relay

	// Services
	Identity *identity.Service
	Sessions *session.Manager

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// NotifyChannel is the Redis channel for move events (redis storage only)
	NotifyChannel string
	// IdentityConfig holds token and hashing settings (optional)
	IdentityConfig identity.Config
}

// New creates a new application with all dependencies wired. In redis mode
// moves are published to a Redis channel and relayed into the local hub, so
// every server instance sharing the store notifies its own observers.
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageTypeMemory
	}

	registry, metrics := observability.NewRegistry()
	hub := notifier.NewHub(logger, metrics)

	var (
		store     storage.Storage
		publisher notifier.Publisher
		relay     *notifier.Relay
	)

	switch storageType {
	case config.StorageTypeMemory:
		store = memory.New()
		publisher = notifier.NewHubPublisher(hub, metrics)
	case config.StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		channel := cfg.NotifyChannel
		if channel == "" {
			channel = notifier.DefaultChannel
		}
		store = redisStore
		publisher = notifier.NewRedisPublisher(redisStore.Client(), channel, metrics)
		relay = notifier.NewRelay(redisStore.Client(), channel, hub, logger)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	app := newWithDependencies(store, clock.New(), ids.New(), cfg.IdentityConfig, logger, metrics, hub, publisher)
	app.Registry = registry
	app.Relay = relay
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	gen ids.Generator,
	identityCfg identity.Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
	hub *notifier.Hub,
	publisher notifier.Publisher,
) *App {
	identityService := identity.New(store, clk, gen, logger, identityCfg)
	manager := session.NewManager(store, identityService, publisher, clk, gen, metrics, logger)

	return &App{
		Storage:   store,
		Clock:     clk,
		IDs:       gen,
		Metrics:   metrics,
		Hub:       hub,
		Publisher: publisher,
		Identity:  identityService,
		Sessions:  manager,
		logger:    logger,
	}
}

// Start runs the notifier hub and, in redis mode, subscribes the relay
func (a *App) Start(ctx context.Context) error {
	go a.Hub.Run()

	if a.Relay != nil {
		if err := a.Relay.Start(ctx); err != nil {
			a.Hub.Close()
			return err
		}
	}
	return nil
}

// Close stops notifications and releases the store connection
func (a *App) Close() error {
	var errs []error
	if a.Relay != nil {
		errs = append(errs, a.Relay.Close())
	}
	a.Hub.Close()

	if closer, ok := a.Storage.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

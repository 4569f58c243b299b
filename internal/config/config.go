// Package config reads server settings from the environment, optionally seeded
// from a .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Config holds server settings
type Config struct {
	Host        string
	Port        int
	StorageType string

	RedisURL       string
	RedisKeyPrefix string
	// NotifyChannel is the Redis pub/sub channel moves are relayed through
	NotifyChannel string

	// AdminToken guards operator routes; empty disables them
	AdminToken string

	AccessTokenTTL       time.Duration
	TokenCleanupInterval time.Duration

	LogLevel slog.Level
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Port:                 8080,
		StorageType:          StorageTypeMemory,
		RedisKeyPrefix:       "ttt",
		NotifyChannel:        "ttt:events:move",
		AccessTokenTTL:       24 * time.Hour,
		TokenCleanupInterval: 10 * time.Minute,
		LogLevel:             slog.LevelInfo,
	}
}

// Load reads the given .env files (missing files are skipped) into the process
// environment without overriding variables already set, then parses it
func Load(envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv parses settings using getenv, starting from Default
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	cfg.Host = getenv("HOST")
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v := getenv("STORAGE_TYPE"); v != "" {
		cfg.StorageType = strings.ToLower(v)
	}
	switch cfg.StorageType {
	case StorageTypeMemory:
	case StorageTypeRedis:
		cfg.RedisURL = getenv("REDIS_URL")
		if cfg.RedisURL == "" {
			return Config{}, errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_TYPE %q: must be 'memory' or 'redis'", cfg.StorageType)
	}

	if v := getenv("REDIS_KEY_PREFIX"); v != "" {
		cfg.RedisKeyPrefix = v
	}
	if v := getenv("NOTIFY_CHANNEL"); v != "" {
		cfg.NotifyChannel = v
	}
	cfg.AdminToken = getenv("ADMIN_TOKEN")

	var err error
	if cfg.AccessTokenTTL, err = duration(getenv, "ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.TokenCleanupInterval, err = duration(getenv, "TOKEN_CLEANUP_INTERVAL", cfg.TokenCleanupInterval); err != nil {
		return Config{}, err
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	return cfg, nil
}

// Logger returns a JSON logger writing to w at the configured level
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

func duration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}

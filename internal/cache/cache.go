// Package cache provides a small key/value cache with TTL, backed by an
// in-process go-cache instance or by Redis.
//
// The broker keeps short lived login state (one-time nonces) here, so the
// Redis backend is needed as soon as more than one instance serves callbacks.
package cache

import (
	"context"
	"errors"
	"time"
)

// Client defines the cache operations.
type Client interface {
	// Get returns ErrNotFound for absent or expired keys.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value; a ttl of 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Take atomically returns and removes a key. ErrNotFound when absent.
	Take(ctx context.Context, key string) (string, error)

	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures the backend.
type Config struct {
	Kind       string // "memory" | "redis"
	Addr       string
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

// ErrNotFound reports a missing key.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New creates the configured client. Unknown kinds fall back to memory.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(ctx, cfg)
	default:
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}

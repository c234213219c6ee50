// Package store persists provider responses for the second cache tier.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Store is a namespaced key/value store with per-entry expiry. Values are
// opaque encoded provider responses.
type Store interface {
	// Get returns the value for key, or nil when absent or expired.
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	// Set stores value under key until ttl elapses, replacing any previous value.
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	// DeleteExpired removes expired entries and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a Store driver.
type Config struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// Drivers lists the accepted Config.Driver values.
var Drivers = []string{"memory", "sqlite", "postgres", "redis"}

// Open builds the configured Store and runs its migration. Driver "memory"
// (or empty) returns nil: the in-process cache tier is the only tier.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "memory":
		return nil, nil
	case "sqlite":
		s, err = NewSQLite(cfg.DSN)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DSN, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	case "redis":
		s, err = NewRedis(cfg.DSN)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Package kvstore provides the key-value persistence service the reminder
// list is written to. Backends store opaque bytes under string keys.
package kvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/notexe/forget-me-not/internal/config"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Store is a durable get/set-by-key service.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg *config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		path := config.ExpandPath(cfg.SQLitePath)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return NewSQLite(path)
	case BackendRedis:
		return DialRedis(ctx, cfg.RedisURL)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: %s, %s, %s)",
			cfg.Backend, BackendSQLite, BackendRedis, BackendMemory)
	}
}

// Package kvstore persists whole collections as JSON documents under fixed keys.
package kvstore

import (
	"context"
	"fmt"

	"github.com/hpungsan/meishi/internal/config"
)

// Fixed document keys.
const (
	KeyContacts  = "contacts"
	KeyPolicies  = "policies"
	KeyRecentIDs = "recent_ids"
	KeyMemos     = "memos"
)

// Store is a durable key-value store holding serialized collections.
type Store interface {
	// Get returns the document under key; ok is false if it was never written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put replaces the document under key.
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open returns the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config, baseDir string) (Store, error) {
	switch cfg.StoreBackend {
	case "", config.BackendSQLite:
		return OpenSQLite(baseDir, cfg)
	case config.BackendRedis:
		s := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

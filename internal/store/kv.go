package store

import (
	"context"
	"fmt"
)

// KV is a string-valued key-value store, the durable home of the
// persisted audit state.
type KV interface {
	// Get reports found=false for an absent key; that is not an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Options struct {
	Backend       string
	RedisURL      string
	DatabaseURL   string
	MigrationsDir string
}

// OpenKV connects the configured backend. Postgres migrations are applied
// before the store is returned.
func OpenKV(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryKV(), nil
	case BackendRedis:
		return NewRedisKV(opts.RedisURL)
	case BackendPostgres:
		db, err := Open(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := ApplyMigrations(ctx, db, opts.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewPostgresKV(db), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresKV keeps the current value in kv_store and appends every write
// to kv_store_history.
type PostgresKV struct {
	db *sql.DB
}

func NewPostgresKV(db *sql.DB) *PostgresKV {
	return &PostgresKV{db: db}
}

func (s *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key=$1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select kv %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresKV) Set(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kv tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv_store(key, value, updated_at) VALUES($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, key, value); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert kv %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO kv_store_history(key, value) VALUES($1, $2)`, key, value); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record kv history %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit kv %s: %w", key, err)
	}
	return nil
}

// Versions returns how many writes were recorded for key.
func (s *PostgresKV) Versions(ctx context.Context, key string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store_history WHERE key=$1`, key).Scan(&n); err != nil {
		return 0, fmt.Errorf("count kv history %s: %w", key, err)
	}
	return n, nil
}

func (s *PostgresKV) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresKV) Close() error {
	return s.db.Close()
}

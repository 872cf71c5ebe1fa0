package db

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/hpungsan/meishi/internal/errors"
)

// Get returns the document stored under key. ok is false if the key is unset.
func Get(ctx context.Context, db *sql.DB, key string) (value []byte, ok bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous document.
func Put(ctx context.Context, db *sql.DB, key string, value []byte, updatedAt int64) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, value, updatedAt); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

package kvstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/db"
)

// SQLiteStore keeps documents in the local meishi.db.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite initializes baseDir/meishi.db and applies pool settings from cfg.
func OpenSQLite(baseDir string, cfg *config.Config) (*SQLiteStore, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(database, cfg)
	return NewSQLiteStore(database), nil
}

// NewSQLiteStore wraps an initialized database.
func NewSQLiteStore(database *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: database, now: time.Now}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return db.Get(ctx, s.db, key)
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	return db.Put(ctx, s.db, key, value, s.now().Unix())
}

// DB exposes the underlying handle for maintenance commands.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

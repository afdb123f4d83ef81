package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Dialect holds the statements a SQLStore runs against the kv_store table.
type Dialect struct {
	Name      string
	selectSQL string
	upsertSQL string
}

var (
	SQLiteDialect = Dialect{
		Name:      "sqlite",
		selectSQL: `SELECT value FROM kv_store WHERE key = ?`,
		upsertSQL: `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	}
	PostgresDialect = Dialect{
		Name:      "postgres",
		selectSQL: `SELECT value FROM kv_store WHERE key = $1`,
		upsertSQL: `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	}
)

// SQLStore implements Store on the kv_store table created by the database
// migrations.
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
	now     func() time.Time
}

func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{DB: db, Dialect: d, now: time.Now}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, s.Dialect.selectSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.DB.ExecContext(ctx, s.Dialect.upsertSQL, key, string(value), s.now().UTC())
	return err
}

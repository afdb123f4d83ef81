package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/interntrack/tracker/internal/config"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_PostgresGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("apps").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err = NewSQLStore(db, PostgresDialect).Get(context.Background(), "apps")
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_PostgresUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewSQLStore(db, PostgresDialect)
	store.now = func() time.Time { return fixed }

	mock.ExpectExec(`INSERT INTO kv_store \(key, value, updated_at\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs("apps", `[{"id":"a"}]`, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT value FROM kv_store`).
		WithArgs("apps").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[{"id":"a"}]`))

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "apps", []byte(`[{"id":"a"}]`)))
	got, err := store.Get(ctx, "apps")
	require.NoError(t, err)
	require.Equal(t, `[{"id":"a"}]`, string(got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_WriteFailureSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(`INSERT INTO kv_store`).WillReturnError(errors.New("disk full"))

	repo := NewJSONRepository(NewSQLStore(db, PostgresDialect), "apps", "postgres")
	err = repo.Save(context.Background(), sample())
	require.ErrorIs(t, err, ErrPersistenceWriteFailed)
	require.ErrorContains(t, err, "disk full")
}

func TestOpen_SQLitePersistsAcrossReopen(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendSQLite, Key: "internship-applications"},
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "tracker.sqlite")},
	}
	ctx := context.Background()

	repo, closeFn, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.Empty(t, repo.Load(ctx))
	require.NoError(t, repo.Save(ctx, sample()))
	require.NoError(t, repo.Save(ctx, sample()[:1]))
	require.NoError(t, closeFn())

	reopened, closeFn, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()
	require.Equal(t, sample()[:1], reopened.Load(ctx))
	require.Equal(t, config.BackendSQLite, reopened.Backend())
}

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Backend: config.BackendMemory, Key: "k"}}
	repo, closeFn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, closeFn())
	require.Equal(t, "k", repo.Key())
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Backend: "floppy", Key: "k"}}
	_, _, err := Open(context.Background(), cfg)
	require.Error(t, err)
}

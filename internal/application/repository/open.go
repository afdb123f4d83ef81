package repository

import (
	"context"
	"fmt"

	"github.com/interntrack/tracker/internal/config"
	"github.com/interntrack/tracker/internal/database"
	"github.com/redis/go-redis/v9"
)

// Open builds the repository selected by cfg.Storage.Backend. The returned
// close func releases the backend connection.
func Open(ctx context.Context, cfg *config.Config) (*JSONRepository, func() error, error) {
	key := cfg.Storage.Key
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return NewJSONRepository(NewMemoryStore(), key, config.BackendMemory), func() error { return nil }, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db, "sqlite3"); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Infof("sqlite store ready at %s", cfg.SQLite.Path)
		return NewJSONRepository(NewSQLStore(db, SQLiteDialect), key, config.BackendSQLite), db.Close, nil

	case config.BackendPostgres:
		db, err := database.OpenPostgres(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db, "postgres"); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return NewJSONRepository(NewSQLStore(db, PostgresDialect), key, config.BackendPostgres), db.Close, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr(), err)
		}
		log.Infof("redis store ready at %s", cfg.Redis.Addr())
		return NewJSONRepository(NewRedisStore(client, cfg.Redis.Prefix), key, config.BackendRedis), client.Close, nil

	case config.BackendMongo:
		client, err := database.ConnectMongoRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			return nil, nil, err
		}
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		closeFn := func() error { return client.Disconnect(context.Background()) }
		return NewJSONRepository(NewMongoStore(col), key, config.BackendMongo), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

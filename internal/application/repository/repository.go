package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/interntrack/tracker/internal/application"
	"github.com/interntrack/tracker/pkg/logger"
	"github.com/interntrack/tracker/pkg/metrics"
)

var (
	// ErrKeyNotFound is returned by a Store when nothing was saved under the key yet.
	ErrKeyNotFound = errors.New("key not found")
	// ErrPersistenceWriteFailed wraps any Save failure. The in-memory
	// collection is still correct but not durable until a later save succeeds.
	ErrPersistenceWriteFailed = errors.New("persistence write failed")
)

var log = logger.Named("storage")

// Store is a single-key byte store: the local key-value store the collection
// is mirrored to.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Repository loads and saves the whole collection.
type Repository interface {
	// Load never fails: a missing or unreadable value yields an empty collection.
	Load(ctx context.Context) application.Collection
	// Save writes the full collection synchronously.
	Save(ctx context.Context, c application.Collection) error
}

// JSONRepository stores the collection as a JSON array under one key of a Store.
type JSONRepository struct {
	store   Store
	key     string
	backend string
}

// NewJSONRepository wraps store. backend names the store in logs and metrics.
func NewJSONRepository(store Store, key, backend string) *JSONRepository {
	return &JSONRepository{store: store, key: key, backend: backend}
}

// Key returns the storage key the collection lives under.
func (r *JSONRepository) Key() string { return r.key }

// Backend returns the backend name.
func (r *JSONRepository) Backend() string { return r.backend }

func (r *JSONRepository) Load(ctx context.Context) application.Collection {
	b, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			log.Debugf("no saved collection under %q (%s), starting empty", r.key, r.backend)
		} else {
			log.Warnf("read %q from %s failed, starting empty: %v", r.key, r.backend, err)
		}
		return application.Collection{}
	}
	var c application.Collection
	if err := json.Unmarshal(b, &c); err != nil {
		log.Warnf("stored value under %q is not a valid collection, starting empty: %v", r.key, err)
		return application.Collection{}
	}
	if c == nil {
		c = application.Collection{}
	}
	return c
}

func (r *JSONRepository) Save(ctx context.Context, c application.Collection) error {
	if c == nil {
		c = application.Collection{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues(r.backend).Inc()
		return fmt.Errorf("%w: encode: %w", ErrPersistenceWriteFailed, err)
	}
	if err := r.store.Put(ctx, r.key, b); err != nil {
		metrics.PersistenceFailures.WithLabelValues(r.backend).Inc()
		log.Errorf("write %q to %s failed: %v", r.key, r.backend, err)
		return fmt.Errorf("%w: %w", ErrPersistenceWriteFailed, err)
	}
	return nil
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/interntrack/tracker/internal/application"
	"github.com/interntrack/tracker/internal/application/repository"
	"github.com/interntrack/tracker/internal/application/transfer"
	"github.com/interntrack/tracker/internal/application/view"
	"github.com/interntrack/tracker/pkg/logger"
	"github.com/interntrack/tracker/pkg/metrics"
)

var (
	ErrNotFound         = errors.New("application not found")
	ErrImportInProgress = errors.New("an import is already in progress")
)

// ErrInvalidCollection is returned by Replace for a collection with an empty
// or repeated id.
var ErrInvalidCollection = errors.New("invalid collection")

var log = logger.Named("tracker")

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventUpdated  EventKind = "updated"
	EventReplaced EventKind = "replaced"
	EventImported EventKind = "imported"
)

// Event is delivered to observers after the collection changed.
type Event struct {
	Kind    EventKind
	Version uint64
	Size    int
}

// Observer receives change notifications. It runs on the mutating goroutine
// after the collection lock is released.
type Observer func(Event)

// Archiver stores a copy of an export outside the process.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

// ArchiveLinker is implemented by archivers that can hand out a temporary
// download link for an archived export.
type ArchiveLinker interface {
	PresignedURL(ctx context.Context, name string, expires time.Duration) (string, error)
}

// ArchiveLinkTTL is how long a link returned by ArchiveURL stays valid.
const ArchiveLinkTTL = 24 * time.Hour

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator overrides the record id source.
func WithIDGenerator(gen application.IDGenerator) Option {
	return func(t *Tracker) { t.newID = gen }
}

// WithArchiver archives every export through a.
func WithArchiver(a Archiver) Option {
	return func(t *Tracker) { t.archiver = a }
}

// Tracker owns the collection. Every mutation updates memory first and then
// writes the whole collection through the repository.
type Tracker struct {
	repo     repository.Repository
	now      func() time.Time
	newID    application.IDGenerator
	archiver Archiver

	mu      sync.RWMutex
	items   application.Collection
	version uint64

	importing atomic.Bool

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int

	cacheMu      sync.Mutex
	cacheVersion uint64
	views        map[view.Query]application.Collection
	options      *view.Options
}

// NewTracker loads the saved collection from repo.
func NewTracker(ctx context.Context, repo repository.Repository, opts ...Option) *Tracker {
	t := &Tracker{
		repo:      repo,
		now:       time.Now,
		newID:     application.NewID,
		observers: make(map[int]Observer),
	}
	for _, o := range opts {
		o(t)
	}
	t.items = repo.Load(ctx)
	metrics.Records.Set(float64(len(t.items)))
	log.Infof("loaded %d applications", len(t.items))
	return t
}

// Get returns a copy of the full collection.
func (t *Tracker) Get() application.Collection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.items.Clone()
}

// Version increases by one on every mutation.
func (t *Tracker) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Find returns the record with the given id.
func (t *Tracker) Find(id string) (application.Application, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.items.IndexOf(id)
	if i < 0 {
		return application.Application{}, ErrNotFound
	}
	return t.items[i], nil
}

// Replace swaps in a new collection. It is the only way records leave the
// collection.
func (t *Tracker) Replace(ctx context.Context, c application.Collection) error {
	seen := make(map[string]struct{}, len(c))
	for i, a := range c {
		if a.ID == "" {
			return fmt.Errorf("%w: record %d has no id", ErrInvalidCollection, i)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidCollection, a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	_, err := t.mutate(ctx, EventReplaced, func(application.Collection) (application.Collection, error) {
		return c.Clone(), nil
	})
	return err
}

// Create adds a record built from in. On a persistence failure the record is
// returned together with the error and stays in memory.
func (t *Tracker) Create(ctx context.Context, in application.Input) (application.Application, error) {
	var created application.Application
	_, err := t.mutate(ctx, EventCreated, func(cur application.Collection) (application.Collection, error) {
		a, err := application.New(in, t.now(), t.newID)
		if err != nil {
			return nil, err
		}
		for cur.IndexOf(a.ID) >= 0 {
			a.ID = t.newID()
		}
		created = a
		return append(cur.Clone(), a), nil
	})
	if created.ID == "" {
		return application.Application{}, err
	}
	return created, err
}

// Update applies an edit to the record with the given id. id and createdAt
// are preserved.
func (t *Tracker) Update(ctx context.Context, id string, in application.Input) (application.Application, error) {
	var updated application.Application
	_, err := t.mutate(ctx, EventUpdated, func(cur application.Collection) (application.Collection, error) {
		i := cur.IndexOf(id)
		if i < 0 {
			return nil, ErrNotFound
		}
		a, err := cur[i].Apply(in, t.now())
		if err != nil {
			return nil, err
		}
		next := cur.Clone()
		next[i] = a
		updated = a
		return next, nil
	})
	if updated.ID == "" {
		return application.Application{}, err
	}
	return updated, err
}

// errNoChange tells mutate to leave the collection and version alone.
var errNoChange = errors.New("no change")

// mutate runs fn under the write lock. A non-nil error from fn aborts without
// changing anything. Otherwise the result becomes current, is saved, and
// observers are notified; the returned error is then only a save failure.
func (t *Tracker) mutate(ctx context.Context, kind EventKind, fn func(application.Collection) (application.Collection, error)) (bool, error) {
	t.mu.Lock()
	next, err := fn(t.items)
	if errors.Is(err, errNoChange) {
		t.mu.Unlock()
		return false, nil
	}
	if err != nil {
		t.mu.Unlock()
		return false, err
	}
	t.items = next
	t.version++
	ev := Event{Kind: kind, Version: t.version, Size: len(next)}
	saveErr := t.repo.Save(ctx, next)
	t.mu.Unlock()

	metrics.Records.Set(float64(ev.Size))
	if saveErr != nil {
		log.Errorf("%s: collection changed in memory but was not saved: %v", kind, saveErr)
	} else {
		log.Debugf("%s: version %d, %d applications", kind, ev.Version, ev.Size)
	}
	t.notify(ev)
	return true, saveErr
}

// Import reads a JSON document from r and merges its records by id. A second
// call while one is still reading returns ErrImportInProgress. A format error
// leaves the collection unchanged.
func (t *Tracker) Import(ctx context.Context, r io.Reader) (transfer.Report, error) {
	if !t.importing.CompareAndSwap(false, true) {
		metrics.Imports.WithLabelValues("busy").Inc()
		return transfer.Report{}, ErrImportInProgress
	}

	var res transfer.ReadResult
	pending := transfer.ReadAsync(ctx, r)
	select {
	case res = <-pending:
		defer t.importing.Store(false)
	case <-ctx.Done():
		// the read is still running; stay busy until it finishes
		go func() {
			<-pending
			t.importing.Store(false)
		}()
		return transfer.Report{}, ctx.Err()
	}
	if res.Err != nil {
		if transfer.IsFormatError(res.Err) {
			metrics.Imports.WithLabelValues("format_error").Inc()
		}
		log.Warnf("import rejected: %v", res.Err)
		return transfer.Report{}, res.Err
	}

	var rep transfer.Report
	_, err := t.mutate(ctx, EventImported, func(cur application.Collection) (application.Collection, error) {
		merged, r := transfer.Merge(cur, res.Parsed.Records)
		rep = r
		rep.Rejected = res.Parsed.Rejected
		if r.Added == 0 {
			return nil, errNoChange
		}
		return merged, nil
	})

	metrics.ImportedRecords.WithLabelValues("added").Add(float64(rep.Added))
	metrics.ImportedRecords.WithLabelValues("duplicate").Add(float64(rep.Duplicates))
	metrics.ImportedRecords.WithLabelValues("rejected").Add(float64(rep.Rejected))
	switch {
	case err != nil:
		metrics.Imports.WithLabelValues("persist_error").Inc()
	case rep.Added == 0:
		metrics.Imports.WithLabelValues("none").Inc()
	default:
		metrics.Imports.WithLabelValues("added").Inc()
	}
	log.Infof("import: %d added, %d duplicates, %d rejected", rep.Added, rep.Duplicates, rep.Rejected)
	return rep, err
}

// Importing reports whether an import is currently reading its document.
func (t *Tracker) Importing() bool { return t.importing.Load() }

// Export writes the full collection to w and returns the suggested file
// name. When an Archiver is configured a copy is stored there as well; an
// archive failure is logged and does not fail the export.
func (t *Tracker) Export(ctx context.Context, w io.Writer) (string, error) {
	name := transfer.ExportFilename(t.now())
	data, err := transfer.Encode(t.Get())
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	metrics.Exports.Inc()
	if t.archiver != nil {
		if err := t.archiver.Archive(ctx, name, data); err != nil {
			log.Warnf("export archive failed: %v", err)
		}
	}
	return name, nil
}

// ArchiveURL returns a temporary download link for the archived export
// name. ok is false when no archiver is configured or it cannot link.
func (t *Tracker) ArchiveURL(ctx context.Context, name string) (url string, ok bool, err error) {
	linker, can := t.archiver.(ArchiveLinker)
	if !can {
		return "", false, nil
	}
	url, err = linker.PresignedURL(ctx, name, ArchiveLinkTTL)
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

// View returns the filtered, sorted projection for q. Results are cached
// until the next mutation.
func (t *Tracker) View(q view.Query) application.Collection {
	t.mu.RLock()
	items, version := t.items, t.version
	t.mu.RUnlock()

	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.resetCacheLocked(version)
	if v, ok := t.views[q]; ok {
		return v.Clone()
	}
	v := view.Apply(items, q)
	t.views[q] = v
	return v.Clone()
}

// Options returns the filter choices for the current collection.
func (t *Tracker) Options() view.Options {
	t.mu.RLock()
	items, version := t.items, t.version
	t.mu.RUnlock()

	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.resetCacheLocked(version)
	if t.options == nil {
		o := view.OptionsFor(items)
		t.options = &o
	}
	return *t.options
}

func (t *Tracker) resetCacheLocked(version uint64) {
	if t.views != nil && t.cacheVersion == version {
		return
	}
	t.cacheVersion = version
	t.views = make(map[view.Query]application.Collection)
	t.options = nil
}

// Subscribe registers fn for change notifications and returns a func that
// removes it.
func (t *Tracker) Subscribe(fn Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn
	t.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.obsMu.Lock()
			delete(t.observers, id)
			t.obsMu.Unlock()
		})
	}
}

func (t *Tracker) notify(ev Event) {
	t.obsMu.Lock()
	fns := make([]Observer, 0, len(t.observers))
	for _, fn := range t.observers {
		fns = append(fns, fn)
	}
	t.obsMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

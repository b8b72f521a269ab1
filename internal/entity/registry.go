package entity

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry wraps a Repository with an in-memory cache of records.
//
// The cache is loaded by RefreshCache on startup and kept in step by
// every write. Returned records are deep copies.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Record
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Record),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads every record from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	records, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading entities: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Record, len(records))
	for i := range records {
		r.cache[records[i].UniqueID] = records[i].DeepCopy()
	}

	r.logger.Info("entity cache refreshed", "count", len(records))
	return nil
}

// List returns every cached record ordered by unique ID.
func (r *Registry) List() []Record {
	r.cacheMu.RLock()
	records := make([]Record, 0, len(r.cache))
	for _, rec := range r.cache {
		records = append(records, *rec.DeepCopy())
	}
	r.cacheMu.RUnlock()

	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.UniqueID, b.UniqueID)
	})
	return records
}

// Upsert persists rec and updates the cache. A previously stored first-seen
// time and last value are preserved.
func (r *Registry) Upsert(ctx context.Context, rec Record) error {
	r.cacheMu.RLock()
	if cached, ok := r.cache[rec.UniqueID]; ok {
		rec.FirstSeen = cached.FirstSeen
		if rec.LastValue == nil {
			rec.LastValue = copyFloat(cached.LastValue)
		}
	}
	r.cacheMu.RUnlock()

	if err := r.repo.Upsert(ctx, &rec); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[rec.UniqueID] = rec.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Debug("entity upserted", "unique_id", rec.UniqueID)
	return nil
}

// Delete removes a record and its history.
func (r *Registry) Delete(ctx context.Context, uniqueID string) error {
	if err := r.repo.Delete(ctx, uniqueID); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, uniqueID)
	r.cacheMu.Unlock()

	r.logger.Info("entity deleted", "unique_id", uniqueID)
	return nil
}

// RecordValue appends value to the entity's history and updates its last value.
func (r *Registry) RecordValue(ctx context.Context, uniqueID string, value float64, source string) error {
	if err := r.repo.RecordValue(ctx, uniqueID, value, source); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[uniqueID]; ok {
		updated := cached.DeepCopy()
		updated.LastValue = &value
		updated.LastSeen = time.Now().UTC()
		r.cache[uniqueID] = updated
	}
	r.cacheMu.Unlock()

	r.logger.Debug("entity value recorded", "unique_id", uniqueID, "value", value, "source", source)
	return nil
}

// History returns recent values for an entity, newest first.
func (r *Registry) History(ctx context.Context, uniqueID string, limit int) ([]HistoryEntry, error) {
	return r.repo.History(ctx, uniqueID, limit)
}

// Count returns the number of cached records.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

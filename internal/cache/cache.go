package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Entry is one persisted result. Value holds the JSON encoding of
// whatever the producer returned.
type Entry struct {
	Key        string          `json:"key"`
	Value      json.RawMessage `json:"value"`
	FetchedAt  time.Time       `json:"fetched_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
}

// IsFresh reports whether the entry is still within its TTL at now.
func (e *Entry) IsFresh(now time.Time) bool {
	expires := e.FetchedAt.Add(time.Duration(e.TTLSeconds) * time.Second)
	return expires.After(now)
}

// Store persists entries by key. Load returns an error for missing or
// unreadable entries; callers treat both as a miss.
type Store interface {
	Load(key string) (*Entry, error)
	Save(entry Entry) error
}

type Cache struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Cache)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached value under key if it is fresh, otherwise it
// calls fetch and stores the result. A fetch error is returned as is and
// leaves the existing entry alone. Failing to persist a fresh value is
// logged but not returned.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	log := c.logger.With(zap.String("key", key))

	if v, ok := lookup[T](c, key, log); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Warn("cache encode failed", zap.Error(err))
		return v, nil
	}
	entry := Entry{
		Key:        key,
		Value:      data,
		FetchedAt:  c.now().UTC(),
		TTLSeconds: int64(ttl / time.Second),
	}
	if err := c.store.Save(entry); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
	return v, nil
}

func lookup[T any](c *Cache, key string, log *zap.Logger) (T, bool) {
	var zero T

	entry, err := c.store.Load(key)
	if err != nil {
		log.Debug("cache miss", zap.Error(err))
		return zero, false
	}
	if !entry.IsFresh(c.now()) {
		log.Debug("cache expired", zap.Time("fetched_at", entry.FetchedAt))
		return zero, false
	}

	var v T
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		log.Debug("cache entry unreadable", zap.Error(fmt.Errorf("decode %s: %w", key, err)))
		return zero, false
	}
	log.Debug("cache hit", zap.Time("fetched_at", entry.FetchedAt))
	return v, true
}

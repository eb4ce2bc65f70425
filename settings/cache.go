package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Cache is a process-wide snapshot of a tenant's settings. Hot-path reads
// never touch the backing store; the snapshot is replaced wholesale by
// Refresh, which is invoked after every successful write, never
// implicitly.
//
// Many readers may hold the lock concurrently; Refresh is the single
// writer and swaps the entire map so no partial update is ever visible.
type Cache struct {
	store  Store
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot map[string]string
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger for the cache.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// NewCache creates an empty cache over the given store. Call Refresh to
// load the initial snapshot.
func NewCache(store Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store:    store,
		logger:   slog.Default(),
		snapshot: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reloads the entire snapshot from the store. On failure the
// previous snapshot is kept and the error returned; a transient backend
// outage must not wipe live configuration.
func (c *Cache) Refresh(ctx context.Context) error {
	all, err := c.store.AllSettings(ctx)
	if err != nil {
		return fmt.Errorf("velocty/settings: refresh: %w", err)
	}

	next := make(map[string]string, len(all))
	for _, s := range all {
		next[s.Key] = s.Value
	}

	c.mu.Lock()
	c.snapshot = next
	c.mu.Unlock()
	return nil
}

// Get returns the cached value for key and whether it is present.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.snapshot[key]
	return v, ok
}

// GetOr returns the cached value for key, or def when absent.
func (c *Cache) GetOr(key, def string) string {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// GetInt returns the cached value parsed as an integer, or def when the
// key is absent or not numeric.
func (c *Cache) GetInt(key string, def int) int {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.logger.Warn("setting is not numeric", "key", key, "value", v)
		return def
	}
	return n
}

// GetDuration returns the cached value parsed as a time.Duration, or def
// when the key is absent or malformed.
func (c *Cache) GetDuration(key string, def time.Duration) time.Duration {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		c.logger.Warn("setting is not a duration", "key", key, "value", v)
		return def
	}
	return d
}

// Set writes through to the store, then refreshes the snapshot so the new
// value is immediately visible to readers.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.store.SetSetting(ctx, key, value); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Delete removes a setting from the store, then refreshes the snapshot.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.store.DeleteSetting(ctx, key); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Len reports the number of cached settings.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshot)
}

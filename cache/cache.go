// Package cache decouples callers from network round-trips by holding server
// responses under stable keys with time-based staleness and garbage
// collection. Invalidation is a set-membership operation: marking an entry
// stale twice is the same as marking it once.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Defaults mirror the platform client configuration: data older than the
// stale window is refetched on next access, unreferenced entries are purged
// after the GC window, reads get one retry, writes get none.
const (
	DefaultStaleWindow   = 5 * time.Minute
	DefaultGCWindow      = 10 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultReadRetries   = 1
)

// FetchFunc loads the value for a key from the backing API.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	data        any
	fetchedAt   time.Time
	invalidated bool
	lastAccess  time.Time
	subscribers int
}

// Cache is the process-wide query cache. All writes are last-write-wins per
// key; a failed fetch never touches the previous entry.
type Cache struct {
	mu            sync.RWMutex
	entries       map[string]*entry
	keys          map[string]Key
	staleWindow   time.Duration
	gcWindow      time.Duration
	sweepInterval time.Duration
	readRetries   int
	group         singleflight.Group
	nowTime       func() time.Time
	logger        zerolog.Logger
}

// Option modifies a Cache at construction time.
type Option func(*Cache)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

// WithStaleWindow overrides the default staleness window.
func WithStaleWindow(d time.Duration) Option {
	return func(c *Cache) {
		c.staleWindow = d
	}
}

// WithGCWindow overrides the default garbage-collection window.
func WithGCWindow(d time.Duration) Option {
	return func(c *Cache) {
		c.gcWindow = d
	}
}

// WithSweepInterval overrides how often the GC sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.sweepInterval = d
	}
}

// WithReadRetries overrides the retry count applied after a failed fetch.
func WithReadRetries(n int) Option {
	return func(c *Cache) {
		c.readRetries = n
	}
}

func New(logger zerolog.Logger, options ...Option) *Cache {
	c := &Cache{
		entries:       make(map[string]*entry),
		keys:          make(map[string]Key),
		staleWindow:   DefaultStaleWindow,
		gcWindow:      DefaultGCWindow,
		sweepInterval: DefaultSweepInterval,
		readRetries:   DefaultReadRetries,
		nowTime:       time.Now,
		logger:        logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Get returns the cached value for key and whether it is present and fresh.
// A present-but-stale entry returns its data with fresh=false so callers can
// render it while a refetch is in flight.
func (c *Cache) Get(key Key) (data any, present bool, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return nil, false, false
	}
	e.lastAccess = c.nowTime()
	return e.data, true, c.isFresh(e)
}

// GetOrFetch returns the fresh cached value for key, or loads it via fetch.
// Concurrent callers for the same key share a single in-flight fetch. On
// failure the configured retries are exhausted, the error is surfaced, and
// the previous entry (if any) is left untouched.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	slot := key.String()

	c.mu.Lock()
	if e, ok := c.entries[slot]; ok && c.isFresh(e) {
		e.lastAccess = c.nowTime()
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err, _ := c.group.Do(slot, func() (any, error) {
		var lastErr error
		for attempt := 0; attempt <= c.readRetries; attempt++ {
			data, err := fetch(ctx)
			if err == nil {
				c.Set(key, data)
				return data, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				break
			}
		}
		return nil, lastErr
	})
	if err != nil {
		c.logger.Debug().Str("key", slot).Err(err).Msg("fetch failed")
		return nil, err
	}
	return data, nil
}

// Set stores data under key, replacing any previous entry.
func (c *Cache) Set(key Key, data any) {
	now := c.nowTime()

	c.mu.Lock()
	defer c.mu.Unlock()

	slot := key.String()
	e, ok := c.entries[slot]
	if !ok {
		e = &entry{}
		c.entries[slot] = e
		c.keys[slot] = key
	}
	e.data = data
	e.fetchedAt = now
	e.lastAccess = now
	e.invalidated = false
}

// Invalidate marks the exact entry for key stale. Unknown keys are a no-op.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key.String()]; ok {
		e.invalidated = true
	}
}

// InvalidatePrefix marks stale every entry whose key begins with prefix,
// including the exact entry for prefix itself. This is how event handlers
// invalidate a whole resource without enumerating ids.
func (c *Cache) InvalidatePrefix(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for slot, key := range c.keys {
		if key.HasPrefix(prefix) {
			c.entries[slot].invalidated = true
			count++
		}
	}
	if count > 0 {
		c.logger.Debug().Str("prefix", prefix.String()).Int("entries", count).Msg("cache invalidated")
	}
}

// IsStale reports whether the entry for key exists and is stale. Useful for
// asserting invalidation effects; absent keys report false.
func (c *Cache) IsStale(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key.String()]
	return ok && !c.isFresh(e)
}

// Subscribe pins the entry for key against garbage collection and returns a
// release function. Entries with live subscribers are never purged.
func (c *Cache) Subscribe(key Key) func() {
	slot := key.String()

	c.mu.Lock()
	e, ok := c.entries[slot]
	if !ok {
		e = &entry{lastAccess: c.nowTime()}
		c.entries[slot] = e
		c.keys[slot] = key
	}
	e.subscribers++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if e, ok := c.entries[slot]; ok && e.subscribers > 0 {
				e.subscribers--
			}
		})
	}
}

// Run drives the periodic GC sweep until ctx is cancelled.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep purges entries unreferenced for longer than the GC window.
func (c *Cache) Sweep() {
	cutoff := c.nowTime().Add(-c.gcWindow)

	c.mu.Lock()
	defer c.mu.Unlock()

	purged := 0
	for slot, e := range c.entries {
		if e.subscribers == 0 && e.lastAccess.Before(cutoff) {
			delete(c.entries, slot)
			delete(c.keys, slot)
			purged++
		}
	}
	if purged > 0 {
		c.logger.Debug().Int("entries", purged).Msg("cache sweep purged entries")
	}
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) isFresh(e *entry) bool {
	if e.invalidated {
		return false
	}
	return c.nowTime().Sub(e.fetchedAt) < c.staleWindow
}

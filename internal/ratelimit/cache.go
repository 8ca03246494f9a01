package ratelimit

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Defaults for the verification endpoint limiter.
const (
	DefaultMaxRequests     = 50
	DefaultWindow          = time.Minute
	DefaultCleanupInterval = 5 * time.Minute
	DefaultEntryTTL        = 10 * time.Minute
	DefaultMaxEntries      = 1000
)

type Config struct {
	MaxRequests     int
	Window          time.Duration
	CleanupInterval time.Duration
	EntryTTL        time.Duration
	MaxEntries      int
}

func (c Config) withDefaults() Config {
	out := c
	if out.MaxRequests <= 0 {
		out.MaxRequests = DefaultMaxRequests
	}
	if out.Window <= 0 {
		out.Window = DefaultWindow
	}
	if out.CleanupInterval <= 0 {
		out.CleanupInterval = DefaultCleanupInterval
	}
	if out.EntryTTL <= 0 {
		out.EntryTTL = DefaultEntryTTL
	}
	if out.MaxEntries <= 0 {
		out.MaxEntries = DefaultMaxEntries
	}
	return out
}

// Entry is the per-client counter for the current fixed window.
type Entry struct {
	Count         int
	WindowResetAt time.Time
	LastAccessAt  time.Time
}

// Cache is a bounded, self-cleaning per-client request counter.
//
// Entries live in a recency-ordered arena: every touch (admit or reject) moves the
// entry to the front, so the oldest entry is always the least recently accessed one.
// The arena never holds more than MaxEntries; inserting past the cap drops the
// least recently accessed client.
type Cache struct {
	mu          sync.Mutex
	cfg         Config
	entries     *simplelru.LRU[string, *Entry]
	lastCleanup time.Time

	// OnEvict is called under the cache lock for every entry dropped from the arena,
	// whether by the TTL sweep or by the size cap.
	OnEvict func(clientID string)

	Now func() time.Time
}

var ErrInvalidConfig = errors.New("ratelimit: invalid config")

func New(cfg Config) (*Cache, error) {
	return newWithClock(cfg, time.Now)
}

func newWithClock(cfg Config, now func() time.Time) (*Cache, error) {
	cfg = cfg.withDefaults()
	c := &Cache{cfg: cfg, Now: now}
	lru, err := simplelru.NewLRU[string, *Entry](cfg.MaxEntries, func(key string, _ *Entry) {
		if c.OnEvict != nil {
			c.OnEvict(key)
		}
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	c.entries = lru
	c.lastCleanup = now()
	return c, nil
}

// Allow consumes one request for clientID and reports whether it is admitted.
func (c *Cache) Allow(clientID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.Now()
	c.cleanupLocked(now, false)

	e, ok := c.entries.Get(clientID)
	if !ok || now.After(e.WindowResetAt) {
		c.entries.Add(clientID, &Entry{
			Count:         1,
			WindowResetAt: now.Add(c.cfg.Window),
			LastAccessAt:  now,
		})
		return true
	}

	// Rejections still count as activity for TTL purposes.
	e.LastAccessAt = now
	if e.Count >= c.cfg.MaxRequests {
		return false
	}
	e.Count++
	return true
}

// Cleanup runs an eviction pass immediately, regardless of the cleanup interval.
// It returns the number of entries removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleanupLocked(c.Now(), true)
}

func (c *Cache) cleanupLocked(now time.Time, force bool) int {
	if !force && now.Sub(c.lastCleanup) < c.cfg.CleanupInterval {
		return 0
	}

	removed := 0
	// Keys are ordered oldest access first; Peek keeps that order intact.
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		if now.After(e.WindowResetAt) && now.Sub(e.LastAccessAt) > c.cfg.EntryTTL {
			c.entries.Remove(key)
			removed++
		}
	}
	for c.entries.Len() > c.cfg.MaxEntries {
		if _, _, ok := c.entries.RemoveOldest(); !ok {
			break
		}
		removed++
	}

	c.lastCleanup = now
	return removed
}

// Len returns the number of tracked clients.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Snapshot returns a copy of the entry for clientID without touching it.
func (c *Cache) Snapshot(clientID string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(clientID)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Config returns the effective limiter configuration.
func (c *Cache) Config() Config { return c.cfg }

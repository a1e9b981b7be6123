package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultPurgeInterval is how often a janitor sweeps expired entries when
// no interval is given
const DefaultPurgeInterval = 5 * time.Minute

// MemoryCache is a thread-safe in-process Cache. Expired entries are
// dropped lazily on read, by Purge, and by the janitor started with
// StartJanitor.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     Clock
}

// MemoryOption configures a MemoryCache
type MemoryOption func(*MemoryCache)

// WithMemoryClock overrides the clock used for stamping and expiry
func WithMemoryClock(now Clock) MemoryOption {
	return func(m *MemoryCache) { m.now = now }
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	m := &MemoryCache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Read implements Reader
func (m *MemoryCache) Read(_ context.Context, key string) (*Entry, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if entry.Expired(m.now()) {
		m.mu.Lock()
		// re-check under the write lock; a concurrent Write may have refreshed it
		if cur, ok := m.entries[key]; ok && cur.Expired(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	body := make([]byte, len(entry.Body))
	copy(body, entry.Body)
	entry.Body = body
	return &entry, true
}

// Write implements Writer. Concurrent writes to one key are last-write-wins.
func (m *MemoryCache) Write(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	if err := stamp(entry, m.now(), ttl); err != nil {
		return err
	}

	stored := *entry
	stored.Body = append([]byte(nil), entry.Body...)

	m.mu.Lock()
	m.entries[key] = stored
	m.mu.Unlock()
	return nil
}

// Purge removes every expired entry and returns how many were dropped
func (m *MemoryCache) Purge() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, including expired ones not yet purged
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StartJanitor runs Purge every interval until the returned stop function
// is called. Stop is idempotent and always returns nil.
func (m *MemoryCache) StartJanitor(interval time.Duration) (stop func() error) {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Purge()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() error {
		once.Do(func() {
			close(done)
			<-finished
		})
		return nil
	}
}

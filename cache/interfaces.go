// Package cache provides a TTL key/value store for recommendation results
// with in-memory, file and Redis backends.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// ErrInvalidTTL is returned when an entry is written without a positive TTL
var ErrInvalidTTL = errors.New("cache ttl must be positive")

// Entry represents a cached entry with metadata
type Entry struct {
	FetchedAt time.Time       `json:"fetched_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Body      json.RawMessage `json:"body"`
}

// Expired reports whether the entry is past its TTL at now.
// An entry is never served at or after ExpiresAt.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Reader defines the interface for reading cache entries
type Reader interface {
	// Read retrieves a cache entry by key.
	// Returns the entry and true if found and not expired, false otherwise
	Read(ctx context.Context, key string) (*Entry, bool)
}

// Writer defines the interface for writing cache entries
type Writer interface {
	// Write stores a cache entry under key for ttl. FetchedAt and ExpiresAt
	// are stamped by the backend.
	Write(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
}

// Cache combines both cache operations
type Cache interface {
	Reader
	Writer
}

// Clock returns the current time. Backends accept one so TTL expiry can be
// driven deterministically in tests.
type Clock func() time.Time

func stamp(entry *Entry, now time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	entry.FetchedAt = now
	entry.ExpiresAt = now.Add(ttl)
	return nil
}

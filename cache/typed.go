package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// Typed adapts a raw Cache to a consumer that stores a single Go type,
// encoding values as JSON entry bodies.
type Typed[T any] struct {
	cache Cache
}

// NewTyped wraps c
func NewTyped[T any](c Cache) *Typed[T] {
	return &Typed[T]{cache: c}
}

// Get returns the decoded value for key. An undecodable body counts as a miss.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, *Entry, bool) {
	var zero T
	entry, ok := t.cache.Read(ctx, key)
	if !ok || entry == nil {
		return zero, nil, false
	}

	var v T
	if err := json.Unmarshal(entry.Body, &v); err != nil {
		return zero, nil, false
	}
	return v, entry, true
}

// Set encodes v and stores it under key for ttl
func (t *Typed[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.cache.Write(ctx, key, &Entry{Body: body}, ttl)
}

package cache

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// FileCache implements the Cache interface using filesystem storage
type FileCache struct {
	dir string
	now Clock
}

// NewFileCache creates a new file-based cache under the given subdirectory
// of ~/.recogateway_cache. If subdir is empty, the base directory is used.
func NewFileCache(subdir string) (*FileCache, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Join(home, ".recogateway_cache")
	if subdir != "" {
		baseDir = filepath.Join(baseDir, subdir)
	}
	return NewFileCacheAt(baseDir)
}

// NewFileCacheAt creates a file-based cache rooted at dir
func NewFileCacheAt(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, now: time.Now}, nil
}

// WithClock returns the cache with its clock replaced
func (fc *FileCache) WithClock(now Clock) *FileCache {
	fc.now = now
	return fc
}

// Dir returns the directory entries are stored in
func (fc *FileCache) Dir() string {
	return fc.dir
}

// Read implements Reader interface
func (fc *FileCache) Read(_ context.Context, key string) (*Entry, bool) {
	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if entry.Expired(fc.now()) {
		return nil, false
	}

	return &entry, true
}

// Write implements Writer interface
func (fc *FileCache) Write(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	if err := stamp(entry, fc.now(), ttl); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	// Write to temporary file first, then rename (atomic operation)
	path := fc.path(key)
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// path generates the full filesystem path for a cache key
func (fc *FileCache) path(key string) string {
	return filepath.Join(fc.dir, sanitizeForFilename(key))
}

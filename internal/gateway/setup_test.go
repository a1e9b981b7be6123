package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/recogateway/cache"
	"github.com/briangreenhill/recogateway/internal/config"
	"github.com/briangreenhill/recogateway/internal/providers"
)

func TestNewCacheBackends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		backend string
		want    any
	}{
		{"memory", &cache.MemoryCache{}},
		{"file", &cache.FileCache{}},
		{"redis", &cache.RedisCache{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := &config.Config{RedisAddr: mr.Addr(), Cache: config.CacheConfig{Backend: tt.backend, Dir: t.TempDir()}}
			c, closeFn, err := NewCache(ctx, cfg, zerolog.Nop())
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeFn()) }()
			assert.IsType(t, tt.want, c)
		})
	}

	_, _, err := NewCache(ctx, &config.Config{Cache: config.CacheConfig{Backend: "etcd"}}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSetupFromConfig(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"recommId":"r1","recomms":[{"id":"7"}]}`))
	}))
	defer up.Close()

	cfg := &config.Config{
		Cache:    config.CacheConfig{Backend: "memory", TTL: time.Minute},
		Recombee: config.RecombeeConfig{APIKey: "abcdefghij_KLMNOPQRS-tuv", BaseURL: up.URL, Timeout: time.Second},
		Gemini:   config.GeminiConfig{BaseURL: up.URL},
	}

	gw, closeFn, err := Setup(context.Background(), cfg, up.Client(), zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	assert.True(t, gw.Enabled(providers.Primary))
	assert.False(t, gw.Enabled(providers.Fallback))
	assert.Equal(t, time.Minute, gw.ttl)
	assert.Equal(t, []providers.Record{{ProductID: "7"}}, gw.Fetch(context.Background(), "42", 3, providers.Primary))
}

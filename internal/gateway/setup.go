package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/recogateway/cache"
	"github.com/briangreenhill/recogateway/internal/config"
	"github.com/briangreenhill/recogateway/internal/providers"
)

// NewCache opens the backend named by cfg.Cache.Backend. The returned
// close function is never nil.
func NewCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Cache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache.Backend {
	case "", "memory":
		mc := cache.NewMemoryCache()
		return mc, mc.StartJanitor(cfg.Cache.PurgeInterval), nil
	case "file":
		var (
			fc  *cache.FileCache
			err error
		)
		if cfg.Cache.Dir != "" {
			fc, err = cache.NewFileCacheAt(cfg.Cache.Dir)
		} else {
			fc, err = cache.NewFileCache("recommendations")
		}
		if err != nil {
			return nil, noop, fmt.Errorf("open file cache: %w", err)
		}
		return fc, noop, nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, &cache.RedisConfig{Addr: cfg.RedisAddr}, logger)
		if err != nil {
			return nil, noop, err
		}
		return rc, rc.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// CredentialsFrom returns the provider keys held in cfg
func CredentialsFrom(cfg *config.Config) StaticCredentials {
	return StaticCredentials{
		providers.Primary:  cfg.Recombee.APIKey,
		providers.Fallback: cfg.Gemini.APIKey,
	}
}

// Setup builds a Gateway from configuration
func Setup(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger zerolog.Logger) (*Gateway, func() error, error) {
	registry, err := providers.Setup(cfg, httpClient)
	if err != nil {
		return nil, nil, fmt.Errorf("setup providers: %w", err)
	}

	c, closeCache, err := NewCache(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	gw := New(CredentialsFrom(cfg), registry, c,
		WithTTL(cfg.Cache.TTL),
		WithLogger(logger.With().Str("component", "gateway").Logger()),
	)
	return gw, closeCache, nil
}

// Package gateway turns a (subject, count, provider) request into a cached,
// validated list of product recommendations.
//
// The gateway is a single-provider fetch primitive. It never chains providers
// and never returns an error: every failure collapses to an empty slice and is
// reported through the logger and metrics. Only successful upstream answers
// are cached, including legitimately empty ones.
//
// Concurrent misses on the same key each call upstream; there is no
// single-flight. Concurrent writes to one key are last-write-wins, which is
// safe because both writers derive the value from the same upstream query.
//
// Each provider sits behind a circuit breaker unless WithCircuitBreaker(false)
// is given. A failed fetch is retried upstream on the next call only while the
// breaker is closed. Once it trips (10 requests with a 60% failure ratio) calls
// return empty without contacting upstream for 30s, then a half-open probe
// decides whether to close it again. Failures are never cached in either
// state.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/briangreenhill/recogateway/cache"
	"github.com/briangreenhill/recogateway/internal/metrics"
	"github.com/briangreenhill/recogateway/internal/providers"
)

const (
	MinCount   = 1
	MaxCount   = 50
	DefaultTTL = time.Hour
)

// Credentials resolves the API key for a provider. An empty key means the
// provider is disabled.
type Credentials interface {
	APIKey(kind providers.Kind) string
}

// StaticCredentials is a fixed key per provider
type StaticCredentials map[providers.Kind]string

// APIKey implements Credentials
func (s StaticCredentials) APIKey(kind providers.Kind) string {
	return s[kind]
}

// Fetcher is the surface consumed by the REST, cart and email callers
type Fetcher interface {
	Fetch(ctx context.Context, subjectID string, count int, kind providers.Kind) []providers.Record
	Enabled(kind providers.Kind) bool
}

// Gateway fetches recommendations through a TTL cache
type Gateway struct {
	creds    Credentials
	registry *providers.Registry
	cache    *cache.Typed[[]providers.Record]
	ttl      time.Duration
	logger   zerolog.Logger
	breakers map[providers.Kind]*gobreaker.CircuitBreaker[[]providers.Record]
}

type Option func(*Gateway)

// WithTTL sets how long successful results are cached
func WithTTL(ttl time.Duration) Option {
	return func(g *Gateway) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithCircuitBreaker toggles the per-provider circuit breaker (on by default)
func WithCircuitBreaker(enabled bool) Option {
	return func(g *Gateway) {
		if !enabled {
			g.breakers = nil
		}
	}
}

// New creates a Gateway. Credentials and cache are injected so the gateway
// holds no global state.
func New(creds Credentials, registry *providers.Registry, c cache.Cache, opts ...Option) *Gateway {
	g := &Gateway{
		creds:    creds,
		registry: registry,
		cache:    cache.NewTyped[[]providers.Record](c),
		ttl:      DefaultTTL,
		logger:   zerolog.Nop(),
		breakers: map[providers.Kind]*gobreaker.CircuitBreaker[[]providers.Record]{},
	}
	for _, kind := range registry.List() {
		g.breakers[kind] = newBreaker(kind, &g.logger)
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// ClampCount bounds n to [MinCount, MaxCount]
func ClampCount(n int) int {
	if n < MinCount {
		return MinCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

// Enabled reports whether kind has a registered implementation and a key
func (g *Gateway) Enabled(kind providers.Kind) bool {
	if _, ok := g.registry.Get(kind); !ok {
		return false
	}
	return g.creds.APIKey(kind) != ""
}

// Fetch returns up to count recommendations for subjectID from kind. The
// result is never nil. Cancelling ctx abandons the upstream call.
func (g *Gateway) Fetch(ctx context.Context, subjectID string, count int, kind providers.Kind) []providers.Record {
	log := g.logger.With().Str("provider", string(kind)).Str("subject_id", subjectID).Logger()

	if subjectID == "" {
		metrics.RecommendationFetches.WithLabelValues(string(kind), metrics.OutcomeInvalid).Inc()
		log.Warn().Msg("empty subject id")
		return []providers.Record{}
	}
	count = ClampCount(count)

	apiKey := g.creds.APIKey(kind)
	if apiKey == "" {
		metrics.RecommendationFetches.WithLabelValues(string(kind), metrics.OutcomeDisabled).Inc()
		return []providers.Record{}
	}

	factory, ok := g.registry.Get(kind)
	if !ok {
		metrics.RecommendationFetches.WithLabelValues(string(kind), metrics.OutcomeInvalid).Inc()
		log.Error().Msg("no provider registered")
		return []providers.Record{}
	}

	key := cache.KeyFor(subjectID, string(kind), count)
	if records, _, ok := g.cache.Get(ctx, key); ok {
		metrics.RecommendationFetches.WithLabelValues(string(kind), metrics.OutcomeCacheHit).Inc()
		if records == nil {
			records = []providers.Record{}
		}
		return records
	}

	src, err := factory(apiKey)
	if err != nil {
		g.fail(log, &providers.FetchError{Provider: kind, Kind: providers.KindRequest, Err: err})
		return []providers.Record{}
	}

	start := time.Now()
	records, err := g.call(ctx, kind, func() ([]providers.Record, error) {
		return src.Recommend(ctx, subjectID, count)
	})
	metrics.UpstreamDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		g.fail(log, providers.AsFetchError(kind, err))
		return []providers.Record{}
	}
	if records == nil {
		records = []providers.Record{}
	}

	metrics.RecommendationFetches.WithLabelValues(string(kind), metrics.OutcomeSuccess).Inc()
	metrics.RecommendationsReturned.WithLabelValues(string(kind)).Observe(float64(len(records)))

	// the answer is valid even if the caller has gone away
	if err := g.cache.Set(context.WithoutCancel(ctx), key, records, g.ttl); err != nil {
		metrics.CacheWriteErrors.WithLabelValues(string(kind)).Inc()
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}

	log.Debug().Int("count", count).Int("returned", len(records)).Dur("took", time.Since(start)).Msg("fetched recommendations")
	return records
}

// call runs fn behind the provider's circuit breaker when one is configured
func (g *Gateway) call(ctx context.Context, kind providers.Kind, fn func() ([]providers.Record, error)) ([]providers.Record, error) {
	cb, ok := g.breakers[kind]
	if !ok {
		return fn()
	}

	records, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &providers.FetchError{Provider: kind, Kind: providers.KindUnavailable, Err: err}
	}
	return records, err
}

func (g *Gateway) fail(log zerolog.Logger, fe *providers.FetchError) {
	metrics.RecommendationFetches.WithLabelValues(string(fe.Provider), string(fe.Kind)).Inc()

	ev := log.Warn().Err(fe.Err).Str("error_kind", string(fe.Kind))
	if fe.Kind == providers.KindStatus {
		ev = ev.Int("status", fe.Status)
	}
	ev.Msg("recommendation fetch failed")
}

// Preferred returns Primary when it is enabled and Fallback otherwise.
// Callers use it to chain providers; the gateway never does.
func Preferred(f Fetcher) providers.Kind {
	if f.Enabled(providers.Primary) {
		return providers.Primary
	}
	return providers.Fallback
}

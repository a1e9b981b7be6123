// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/recogateway/internal/auth"
	"github.com/briangreenhill/recogateway/internal/config"
	"github.com/briangreenhill/recogateway/internal/gateway"
	"github.com/briangreenhill/recogateway/internal/http/routes"
	"github.com/briangreenhill/recogateway/internal/logging"
	"github.com/briangreenhill/recogateway/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New(logging.Config{}, "api")
		l.Fatal().Err(err).Msg("load config")
	}

	// Logger
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, "api")
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.RequireLinkSecret(); err != nil {
		return err
	}

	// Gateway
	gw, closeCache, err := gateway.Setup(ctx, cfg, &http.Client{}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()
	if !cfg.HasRecombee() && !cfg.HasGemini() {
		logger.Warn().Msg("no provider keys configured, every recommendation request will be empty")
	}

	// Tracking DB (optional)
	var tracker tracking.Recorder = tracking.Discard{}
	if cfg.HasTracking() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store := tracking.NewStore(pool, logger.With().Str("component", "tracking").Logger())
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		tracker = store
	}

	// Job queue
	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn().Err(err).Msg("close asynq client")
		}
	}()

	// Sessions
	sess := scs.New()
	sess.Lifetime = cfg.SessionLifetime
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = false

	s := routes.New(routes.ServerOptions{
		Sess:      sess,
		Gateway:   gw,
		Tracker:   tracker,
		Queue:     queue,
		Links:     auth.NewClickLink([]byte(cfg.LinkSecret), cfg.BaseURL),
		StoreURL:  cfg.StoreURL,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting api")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down api")
	return srv.Shutdown(shutdownCtx)
}

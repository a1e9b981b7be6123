package main

import (
	"context"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/recogateway/internal/auth"
	"github.com/briangreenhill/recogateway/internal/config"
	"github.com/briangreenhill/recogateway/internal/email"
	"github.com/briangreenhill/recogateway/internal/gateway"
	"github.com/briangreenhill/recogateway/internal/jobs"
	"github.com/briangreenhill/recogateway/internal/logging"
	"github.com/briangreenhill/recogateway/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New(logging.Config{}, "worker")
		l.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, "worker")
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	if err := cfg.RequireLinkSecret(); err != nil {
		return err
	}

	gw, closeCache, err := gateway.Setup(ctx, cfg, &http.Client{}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

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

	var sender email.Sender = email.NewSMTPSender(cfg.Email.Addr, cfg.Email.From)
	if cfg.Email.Addr == "stdout" {
		sender = email.StdoutSender{}
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency:    8,
		StrictPriority: false,
		Queues: map[string]int{
			jobs.QueueEmail:   10, // higher priority
			jobs.QueueDefault: 5,
		},
		Logger:   asynqLogger{logger.With().Str("component", "asynq").Logger()},
		LogLevel: asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()

	mux.Handle(jobs.TaskRecommendationEmail, &jobs.RecommendationEmailHandler{
		Fetcher: gw,
		Sender:  sender,
		Links:   auth.NewClickLink([]byte(cfg.LinkSecret), cfg.BaseURL),
		Tracker: tracker,
		Log:     logger.With().Str("task", jobs.TaskRecommendationEmail).Logger(),
		Count:   jobs.EmailRecommendationCount,
		LinkTTL: jobs.DefaultLinkTTL,
	})

	logger.Info().Str("redis", cfg.RedisAddr).Msg("worker running")
	return srv.Run(mux)
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/recogateway/internal/auth"
	"github.com/briangreenhill/recogateway/internal/email"
	"github.com/briangreenhill/recogateway/internal/gateway"
	"github.com/briangreenhill/recogateway/internal/metrics"
	"github.com/briangreenhill/recogateway/internal/tracking"
)

const (
	EmailRecommendationCount = 6
	DefaultLinkTTL           = 30 * 24 * time.Hour
)

// RecommendationEmailHandler processes TaskRecommendationEmail
type RecommendationEmailHandler struct {
	Fetcher gateway.Fetcher
	Sender  email.Sender
	Links   auth.ClickLink
	Tracker tracking.Recorder
	Log     zerolog.Logger
	Count   int
	LinkTTL time.Duration
}

// ProcessTask implements asynq.Handler. An order with no recommendations
// sends nothing and succeeds.
func (h *RecommendationEmailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p RecommendationEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.Log.Error().Err(err).Msg("bad recommendation email payload")
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	p.UserID = strings.TrimSpace(p.UserID)
	p.Email = strings.TrimSpace(p.Email)
	if p.UserID == "" || p.Email == "" {
		metrics.EmailsSent.WithLabelValues("skipped").Inc()
		return fmt.Errorf("order %q missing user or email: %w", p.OrderID, asynq.SkipRetry)
	}

	log := h.Log.With().Str("order_id", p.OrderID).Str("user_id", p.UserID).Logger()
	start := time.Now()

	count := h.Count
	if count <= 0 {
		count = EmailRecommendationCount
	}
	kind := gateway.Preferred(h.Fetcher)
	records := h.Fetcher.Fetch(ctx, p.UserID, count, kind)
	if len(records) == 0 {
		metrics.EmailsSent.WithLabelValues("skipped").Inc()
		log.Info().Str("provider", string(kind)).Msg("no recommendations, email not sent")
		return nil
	}

	ttl := h.LinkTTL
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	data := email.RecommendationData{OrderID: p.OrderID, Products: make([]email.Product, 0, len(records))}
	for _, r := range records {
		data.Products = append(data.Products, email.Product{
			ID:  r.ProductID,
			URL: h.Links.URL(auth.Click{SubjectID: p.UserID, ProductID: r.ProductID, Provider: string(kind)}, ttl),
		})
	}

	body, err := email.RenderRecommendations(data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.Sender.Send(p.Email, email.Subject, body); err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		if errors.Is(err, email.ErrNoRecipient) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Warn().Err(err).Msg("send recommendation email failed")
		return err
	}
	metrics.EmailsSent.WithLabelValues("sent").Inc()

	if h.Tracker != nil {
		for _, r := range records {
			if _, err := h.Tracker.Record(ctx, tracking.Event{
				SubjectID: p.UserID,
				ProductID: r.ProductID,
				Provider:  string(kind),
				Type:      tracking.Impression,
			}); err != nil {
				// the mail is out; a retry would send it twice
				log.Warn().Err(err).Str("product_id", r.ProductID).Msg("record email impression failed")
			}
		}
	}

	log.Info().Int("products", len(records)).Dur("took", time.Since(start)).Msg("recommendation email sent")
	return nil
}

var _ asynq.Handler = (*RecommendationEmailHandler)(nil)

package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/recogateway/internal/auth"
	"github.com/briangreenhill/recogateway/internal/gateway"
	appmw "github.com/briangreenhill/recogateway/internal/http/middleware"
	"github.com/briangreenhill/recogateway/internal/jobs"
	"github.com/briangreenhill/recogateway/internal/providers"
	"github.com/briangreenhill/recogateway/internal/tracking"
)

// countParam parses a positive count, falling back to def
func countParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// providerParam returns the requested provider, or the caller-side default:
// Primary when enabled, Fallback otherwise.
func (s *Server) providerParam(r *http.Request) (providers.Kind, error) {
	raw := r.URL.Query().Get("provider")
	if raw == "" {
		return gateway.Preferred(s.Gateway), nil
	}
	return providers.ParseKind(raw)
}

// GET /recommendations?user_id=..&count=..&provider=..
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "The user_id parameter is required.")
		return
	}
	kind, err := s.providerParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_provider", err.Error())
		return
	}

	records := s.Gateway.Fetch(r.Context(), userID, countParam(r, DefaultCount), kind)
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "no_recommendations", "No recommendations found.")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GET /cart/recommendations?exclude=1,2&count=..
// Products already in the cart are dropped from the result.
func (s *Server) handleCartRecommendations(w http.ResponseWriter, r *http.Request) {
	subject := appmw.SubjectFrom(r.Context())
	count := gateway.ClampCount(countParam(r, CartDefaultCount))

	exclude := map[string]struct{}{}
	for _, id := range strings.Split(r.URL.Query().Get("exclude"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			exclude[id] = struct{}{}
		}
	}

	// over-fetch so filtering still leaves count items when possible
	fetched := s.Gateway.Fetch(r.Context(), subject, count+len(exclude), gateway.Preferred(s.Gateway))

	out := make([]providers.Record, 0, count)
	for _, rec := range fetched {
		if _, skip := exclude[rec.ProductID]; skip {
			continue
		}
		out = append(out, rec)
		if len(out) == count {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type orderCompletedRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
}

// POST /orders/completed
func (s *Server) handleOrderCompleted(w http.ResponseWriter, r *http.Request) {
	if s.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "queue_unavailable", "Order notifications are disabled.")
		return
	}

	var req orderCompletedRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON.")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_order", err.Error())
		return
	}

	task, err := jobs.NewRecommendationEmailTask(jobs.RecommendationEmailPayload{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Email:   req.Email,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Could not build task.")
		return
	}

	info, err := s.Queue.Enqueue(task)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		writeJSON(w, http.StatusAccepted, map[string]any{"order_id": req.OrderID, "duplicate": true})
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("order_id", req.OrderID).Msg("enqueue recommendation email failed")
		writeError(w, http.StatusServiceUnavailable, "enqueue_failed", "Could not queue the recommendation email.")
		return
	}

	hlog.FromRequest(r).Info().Str("task_id", info.ID).Str("queue", info.Queue).Msg("enqueued recommendation email")
	writeJSON(w, http.StatusAccepted, map[string]any{"order_id": req.OrderID, "task_id": info.ID})
}

type eventRequest struct {
	SubjectID string `json:"subjectId"`
	ProductID string `json:"productId" validate:"required"`
	Provider  string `json:"provider"`
	EventType string `json:"eventType" validate:"required,oneof=impression click conversion"`
}

// POST /recommendations/events
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON.")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}
	if req.SubjectID == "" {
		req.SubjectID = appmw.SubjectFrom(r.Context())
	}

	ev, err := s.Tracker.Record(r.Context(), tracking.Event{
		SubjectID: req.SubjectID,
		ProductID: req.ProductID,
		Provider:  req.Provider,
		Type:      tracking.EventType(req.EventType),
	})
	if err != nil {
		if errors.Is(err, tracking.ErrInvalidEvent) || errors.Is(err, tracking.ErrUnknownType) {
			writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "tracking_failed", "Could not record event.")
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// GET /r/{token}
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	click, err := s.Links.Verify(chi.URLParam(r, "token"))
	switch {
	case errors.Is(err, auth.ErrExpired):
		writeError(w, http.StatusGone, "link_expired", "This link has expired.")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_link", "This link is not valid.")
		return
	}

	if _, err := s.Tracker.Record(r.Context(), tracking.Event{
		SubjectID: click.SubjectID,
		ProductID: click.ProductID,
		Provider:  click.Provider,
		Type:      tracking.Click,
	}); err != nil {
		// still send the shopper on
		hlog.FromRequest(r).Warn().Err(err).Str("product_id", click.ProductID).Msg("record click failed")
	}

	http.Redirect(w, r, s.productURL(click.ProductID), http.StatusFound)
}

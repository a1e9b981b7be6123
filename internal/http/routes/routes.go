package routes

import (
	"net/http"
	"net/url"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/recogateway/internal/auth"
	"github.com/briangreenhill/recogateway/internal/gateway"
	appmw "github.com/briangreenhill/recogateway/internal/http/middleware"
	"github.com/briangreenhill/recogateway/internal/jobs"
	"github.com/briangreenhill/recogateway/internal/tracking"
)

const (
	DefaultCount     = 12
	CartDefaultCount = 6
)

type Server struct {
	Router   *chi.Mux
	Sess     *scs.SessionManager
	Gateway  gateway.Fetcher
	Tracker  tracking.Recorder
	Queue    jobs.Enqueuer  // nil disables order notifications
	Links    auth.ClickLink // signed click-link helper
	StoreURL string         // storefront root for click redirects
	Log      zerolog.Logger
}

type ServerOptions struct {
	Sess      *scs.SessionManager
	Gateway   gateway.Fetcher
	Tracker   tracking.Recorder
	Queue     jobs.Enqueuer
	Links     auth.ClickLink
	StoreURL  string
	RateLimit int // requests per minute per IP; 0 disables
	Logger    zerolog.Logger
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func New(opts ServerOptions) *Server {
	if opts.Sess == nil {
		opts.Sess = scs.New()
	}
	if opts.Tracker == nil {
		opts.Tracker = tracking.Discard{}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:   r,
		Sess:     opts.Sess,
		Gateway:  opts.Gateway,
		Tracker:  opts.Tracker,
		Queue:    opts.Queue,
		Links:    opts.Links,
		StoreURL: opts.StoreURL,
		Log:      opts.Logger,
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(appmw.RateLimit(opts.RateLimit))
		pr.Get("/recommendations", s.handleRecommendations)
		pr.Post("/orders/completed", s.handleOrderCompleted)
		pr.Get("/r/{token}", s.handleClick)

		// session-backed routes resolve a guest subject
		pr.Group(func(sr chi.Router) {
			sr.Use(s.Sess.LoadAndSave)
			sr.Use(appmw.Subject(s.Sess))
			sr.Get("/cart/recommendations", s.handleCartRecommendations)
			sr.Post("/recommendations/events", s.handleEvent)
		})
	})

	return s
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("req_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// apiError is the JSON error body
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Code: code, Message: message})
}

// productURL is where a click on productID lands
func (s *Server) productURL(productID string) string {
	u, err := url.Parse(s.StoreURL)
	if err != nil || s.StoreURL == "" {
		return "/products/" + url.PathEscape(productID)
	}
	return u.JoinPath("products", productID).String()
}

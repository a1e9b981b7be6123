package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/recogateway/cache"
	"github.com/briangreenhill/recogateway/internal/auth"
	"github.com/briangreenhill/recogateway/internal/email"
	"github.com/briangreenhill/recogateway/internal/gateway"
	"github.com/briangreenhill/recogateway/internal/http/routes"
	"github.com/briangreenhill/recogateway/internal/jobs"
	"github.com/briangreenhill/recogateway/internal/providers"
	"github.com/briangreenhill/recogateway/internal/tracking"
	"github.com/briangreenhill/recogateway/recombee"
)

// MockRecombeeServer provides a simple mock for the item recommendation endpoint
type MockRecombeeServer struct {
	server *httptest.Server
	calls  atomic.Int32
}

func NewMockRecombeeServer() *MockRecombeeServer {
	m := &MockRecombeeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/recommend/items/", func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer smoke-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"recommId": uuid.NewString(),
			"recomms":  []map[string]any{{"id": 101}, {"id": 205}, {"id": 309}},
		})
	})
	m.server = httptest.NewServer(mux)
	return m
}

func (m *MockRecombeeServer) Close() {
	m.server.Close()
}

// recordingQueue captures tasks instead of sending them to Redis
type recordingQueue struct {
	tasks []*asynq.Task
}

func (q *recordingQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: jobs.QueueEmail}, nil
}

// TestSmokeTest walks a shopper from cart to email click
func TestSmokeTest(t *testing.T) {
	ctx := context.Background()

	mock := NewMockRecombeeServer()
	defer mock.Close()

	registry := providers.NewRegistry()
	registry.Register(providers.Primary, providers.NewRecombeeFactory(
		recombee.WithBaseURL(mock.server.URL),
		recombee.WithHTTPClient(mock.server.Client()),
	))
	gw := gateway.New(gateway.StaticCredentials{providers.Primary: "smoke-key"}, registry, cache.NewMemoryCache())

	// Tracking hits Postgres only when DATABASE_URL is provided
	var tracker tracking.Recorder = tracking.Discard{}
	var store *tracking.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		require.NoError(t, err)
		defer pool.Close()
		store = tracking.NewStore(pool, zerolog.Nop())
		require.NoError(t, store.EnsureSchema(ctx))
		tracker = store
	}

	links := auth.NewClickLink([]byte("test-secret-"+uuid.NewString()), "http://localhost:8080")
	queue := &recordingQueue{}
	server := routes.New(routes.ServerOptions{
		Sess:     scs.New(),
		Gateway:  gw,
		Tracker:  tracker,
		Queue:    queue,
		Links:    links,
		StoreURL: "https://shop.example.com",
		Logger:   zerolog.Nop(),
	})

	t.Run("complete_shopper_experience", func(t *testing.T) {
		userID := "smoke-" + uuid.NewString()

		// 1. Product page asks for recommendations
		req := httptest.NewRequest(http.MethodGet, "/recommendations?user_id="+userID+"&count=3", nil)
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `[{"productId":"101"},{"productId":"205"},{"productId":"309"}]`, w.Body.String())

		// 2. Same request is served from cache
		w = httptest.NewRecorder()
		server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recommendations?user_id="+userID+"&count=3", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.EqualValues(t, 1, mock.calls.Load())

		// 3. Guest cart hides what is already in the cart
		w = httptest.NewRecorder()
		server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart/recommendations?exclude=205", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), `"205"`)
		require.Contains(t, w.Body.String(), `"101"`)

		// 4. Order completes and a job is queued
		body := `{"order_id":"` + uuid.NewString() + `","user_id":"` + userID + `","email":"shopper@example.com"}`
		req = httptest.NewRequest(http.MethodPost, "/orders/completed", strings.NewReader(body))
		w = httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)
		require.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, queue.tasks, 1)

		// 5. Worker renders the email with signed links
		var mail bytes.Buffer
		handler := &jobs.RecommendationEmailHandler{
			Fetcher: gw,
			Sender:  email.StdoutSender{Out: &mail},
			Links:   links,
			Tracker: tracker,
			Log:     zerolog.Nop(),
		}
		require.NoError(t, handler.ProcessTask(ctx, queue.tasks[0]))
		require.Contains(t, mail.String(), "to=shopper@example.com")

		link := regexp.MustCompile(`http://localhost:8080(/r/[A-Za-z0-9_\-.]+)`).FindStringSubmatch(mail.String())
		require.Len(t, link, 2, "email should contain a click link")

		// 6. Shopper clicks through to the store
		w = httptest.NewRecorder()
		server.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, link[1], nil))
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "https://shop.example.com/products/101", w.Header().Get("Location"))

		// 7. Tracking rows exist when a database is attached
		if store != nil {
			counts, err := store.CountByType(ctx, userID)
			require.NoError(t, err)
			require.Equal(t, int64(1), counts[tracking.Click])
			require.GreaterOrEqual(t, counts[tracking.Impression], int64(1))
		}
	})

	t.Run("upstream_failure_is_not_cached", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer failing.Close()

		reg := providers.NewRegistry()
		reg.Register(providers.Primary, providers.NewRecombeeFactory(recombee.WithBaseURL(failing.URL)))
		mc := cache.NewMemoryCache()
		failGW := gateway.New(gateway.StaticCredentials{providers.Primary: "k"}, reg, mc)

		s := routes.New(routes.ServerOptions{Gateway: failGW, Links: links, Logger: zerolog.Nop()})
		w := httptest.NewRecorder()
		s.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recommendations?user_id=42", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Zero(t, mc.Len())
	})

	// Enqueue against a real Redis when one is reachable
	t.Run("asynq_enqueue", func(t *testing.T) {
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			t.Skip("REDIS_ADDR not set, skipping asynq enqueue")
		}
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: addr})
		defer func() { _ = client.Close() }()

		task, err := jobs.NewRecommendationEmailTask(jobs.RecommendationEmailPayload{
			OrderID: uuid.NewString(), UserID: "42", Email: "a@example.com",
		})
		require.NoError(t, err)

		info, err := client.Enqueue(task, asynq.ProcessIn(time.Hour))
		require.NoError(t, err)
		require.Equal(t, jobs.QueueEmail, info.Queue)

		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: addr})
		defer func() { _ = inspector.Close() }()
		require.NoError(t, inspector.DeleteTask(info.Queue, info.ID))
	})
}

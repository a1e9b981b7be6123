package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/recogateway/internal/auth"
	"github.com/briangreenhill/recogateway/internal/jobs"
	"github.com/briangreenhill/recogateway/internal/providers"
	"github.com/briangreenhill/recogateway/internal/tracking"
)

type fetchCall struct {
	subject string
	count   int
	kind    providers.Kind
}

type fakeFetcher struct {
	enabled map[providers.Kind]bool
	records []providers.Record
	calls   []fetchCall
}

func (f *fakeFetcher) Fetch(_ context.Context, subject string, count int, kind providers.Kind) []providers.Record {
	f.calls = append(f.calls, fetchCall{subject, count, kind})
	if f.records == nil {
		return []providers.Record{}
	}
	return f.records
}

func (f *fakeFetcher) Enabled(kind providers.Kind) bool { return f.enabled[kind] }

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueEmail}, nil
}

type fakeTracker struct{ events []tracking.Event }

func (t *fakeTracker) Record(ctx context.Context, e tracking.Event) (tracking.Event, error) {
	e, err := tracking.Discard{}.Record(ctx, e)
	if err != nil {
		return e, err
	}
	t.events = append(t.events, e)
	return e, nil
}

type testServer struct {
	*Server
	fetcher *fakeFetcher
	queue   *fakeQueue
	tracker *fakeTracker
}

func newTestServer(f *fakeFetcher) *testServer {
	q := &fakeQueue{}
	tr := &fakeTracker{}
	s := New(ServerOptions{
		Gateway:  f,
		Tracker:  tr,
		Queue:    q,
		Links:    auth.NewClickLink([]byte("secret"), "http://localhost:8080"),
		StoreURL: "https://shop.example.com",
		Logger:   zerolog.Nop(),
	})
	return &testServer{Server: s, fetcher: f, queue: q, tracker: tr}
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func primaryOnly(records ...providers.Record) *fakeFetcher {
	return &fakeFetcher{enabled: map[providers.Kind]bool{providers.Primary: true}, records: records}
}

func TestHealthz(t *testing.T) {
	w := newTestServer(primaryOnly()).do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	w := newTestServer(primaryOnly()).do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRecommendations(t *testing.T) {
	ts := newTestServer(primaryOnly(providers.Record{ProductID: "101"}, providers.Record{ProductID: "205"}))

	w := ts.do(http.MethodGet, "/recommendations?user_id=42", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"productId":"101"},{"productId":"205"}]`, w.Body.String())
	assert.Equal(t, []fetchCall{{"42", DefaultCount, providers.Primary}}, ts.fetcher.calls)
}

func TestRecommendationsParams(t *testing.T) {
	ts := newTestServer(primaryOnly(providers.Record{ProductID: "1"}))

	ts.do(http.MethodGet, "/recommendations?user_id=42&count=3&provider=fallback", "")
	ts.do(http.MethodGet, "/recommendations?user_id=42&count=abc", "")
	assert.Equal(t, []fetchCall{
		{"42", 3, providers.Fallback},
		{"42", DefaultCount, providers.Primary},
	}, ts.fetcher.calls)

	w := ts.do(http.MethodGet, "/recommendations?user_id=42&provider=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_provider")
}

func TestRecommendationsDefaultsToFallback(t *testing.T) {
	ts := newTestServer(&fakeFetcher{records: []providers.Record{{ProductID: "301"}}})
	ts.do(http.MethodGet, "/recommendations?user_id=guest_abc", "")
	require.Len(t, ts.fetcher.calls, 1)
	assert.Equal(t, providers.Fallback, ts.fetcher.calls[0].kind)
}

func TestRecommendationsErrors(t *testing.T) {
	ts := newTestServer(primaryOnly())

	w := ts.do(http.MethodGet, "/recommendations", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"missing_user_id"`)
	assert.Empty(t, ts.fetcher.calls)

	w = ts.do(http.MethodGet, "/recommendations?user_id=42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":"no_recommendations","message":"No recommendations found."}`, w.Body.String())
}

func TestCartRecommendations(t *testing.T) {
	ts := newTestServer(primaryOnly(
		providers.Record{ProductID: "1"},
		providers.Record{ProductID: "2"},
		providers.Record{ProductID: "3"},
		providers.Record{ProductID: "4"},
	))

	w := ts.do(http.MethodGet, "/cart/recommendations?exclude=1,%203&count=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"productId":"2"},{"productId":"4"}]`, w.Body.String())

	require.Len(t, ts.fetcher.calls, 1)
	call := ts.fetcher.calls[0]
	assert.True(t, strings.HasPrefix(call.subject, "guest_"), call.subject)
	assert.Equal(t, 4, call.count)
	assert.NotEmpty(t, w.Result().Cookies(), "guest id should be stored in the session")
}

func TestCartRecommendationsEmpty(t *testing.T) {
	ts := newTestServer(primaryOnly())
	w := ts.do(http.MethodGet, "/cart/recommendations", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, CartDefaultCount, ts.fetcher.calls[0].count)
}

func TestOrderCompleted(t *testing.T) {
	ts := newTestServer(primaryOnly())

	w := ts.do(http.MethodPost, "/orders/completed", `{"order_id":"1001","user_id":"42","email":"a@example.com"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"task_id":"task-1"`)

	require.Len(t, ts.queue.tasks, 1)
	assert.Equal(t, jobs.TaskRecommendationEmail, ts.queue.tasks[0].Type())

	var p jobs.RecommendationEmailPayload
	require.NoError(t, json.Unmarshal(ts.queue.tasks[0].Payload(), &p))
	assert.Equal(t, jobs.RecommendationEmailPayload{OrderID: "1001", UserID: "42", Email: "a@example.com"}, p)
}

func TestOrderCompletedErrors(t *testing.T) {
	ts := newTestServer(primaryOnly())

	for _, body := range []string{`not json`, `{"order_id":"1","user_id":"42"}`, `{"order_id":"1","user_id":"42","email":"nope"}`} {
		w := ts.do(http.MethodPost, "/orders/completed", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, ts.queue.tasks)

	ts.queue.err = asynq.ErrTaskIDConflict
	w := ts.do(http.MethodPost, "/orders/completed", `{"order_id":"1","user_id":"42","email":"a@example.com"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"duplicate":true`)

	ts.Queue = nil
	w = ts.do(http.MethodPost, "/orders/completed", `{"order_id":"1","user_id":"42","email":"a@example.com"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEvents(t *testing.T) {
	ts := newTestServer(primaryOnly())

	w := ts.do(http.MethodPost, "/recommendations/events", `{"subjectId":"42","productId":"101","provider":"primary","eventType":"conversion"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, ts.tracker.events, 1)
	assert.Equal(t, tracking.Conversion, ts.tracker.events[0].Type)
	assert.Equal(t, "42", ts.tracker.events[0].SubjectID)

	// subject falls back to the session guest
	w = ts.do(http.MethodPost, "/recommendations/events", `{"productId":"101","eventType":"impression"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, strings.HasPrefix(ts.tracker.events[1].SubjectID, "guest_"))

	w = ts.do(http.MethodPost, "/recommendations/events", `{"productId":"101","eventType":"view"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClickRedirect(t *testing.T) {
	ts := newTestServer(primaryOnly())
	link := ts.Links.URL(auth.Click{SubjectID: "42", ProductID: "SKU 1", Provider: "primary"}, time.Hour)
	path := strings.TrimPrefix(link, "http://localhost:8080")

	w := ts.do(http.MethodGet, path, "")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://shop.example.com/products/SKU%201", w.Header().Get("Location"))

	require.Len(t, ts.tracker.events, 1)
	assert.Equal(t, tracking.Click, ts.tracker.events[0].Type)
	assert.Equal(t, "SKU 1", ts.tracker.events[0].ProductID)
}

func TestClickInvalid(t *testing.T) {
	ts := newTestServer(primaryOnly())

	w := ts.do(http.MethodGet, "/r/garbage", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	expired := ts.Links.Sign(auth.Click{SubjectID: "42", ProductID: "1"}, time.Now().Add(-time.Minute))
	w = ts.do(http.MethodGet, "/r/"+expired, "")
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Empty(t, ts.tracker.events)
}

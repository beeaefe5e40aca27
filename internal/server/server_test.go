package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/randalmurphal/designflow/pkg/design"
	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/nodes"
	"github.com/randalmurphal/designflow/pkg/session"
	"github.com/randalmurphal/designflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultPipeline(t *testing.T, client llm.Client) *workflow.Pipeline {
	t.Helper()
	p, err := workflow.Compile(&design.Document{}, nodes.DefaultRegistry(), workflow.Config{LLM: client},
		workflow.WithCompileLogger(quietLogger()))
	require.NoError(t, err)
	return p
}

func newTestServer(t *testing.T, client llm.Client, opts ...Option) (*Server, session.Store) {
	t.Helper()
	store := session.NewMemoryStore()
	opts = append([]Option{
		WithPipeline(defaultPipeline(t, client)),
		WithSessions(store),
		WithLogger(quietLogger()),
		WithInfo(Info{Version: "1.0.0", BedrockConfigured: true}),
	}, opts...)
	return New(opts...), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRoot(t *testing.T) {
	s, _ := newTestServer(t, llm.NewEchoClient())

	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"message": "Agent Development Kit API",
		"version": "1.0.0",
		"endpoints": {"health": "/health", "query": "/query (POST)", "sessions": "/sessions/{session_id}"}
	}`, rec.Body.String())
}

func TestRoot_AdvertisedEndpointsAreRouted(t *testing.T) {
	s, _ := newTestServer(t, llm.NewEchoClient())

	var meta struct {
		Endpoints map[string]string `json:"endpoints"`
	}
	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	require.NotEmpty(t, meta.Endpoints)

	for name, ep := range meta.Endpoints {
		method, path := http.MethodGet, ep
		if p, ok := strings.CutSuffix(ep, " (POST)"); ok {
			method, path = http.MethodPost, p
		}
		path = strings.ReplaceAll(path, "{session_id}", "abc")
		body := ""
		if method == http.MethodPost {
			body = `{"message":"hi"}`
		}
		rec := do(t, s.Handler(), method, path, body)
		assert.NotEqual(t, http.StatusNotFound, rec.Code, name)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, llm.NewEchoClient())

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	got := decode[HealthResponse](t, rec)
	assert.Equal(t, HealthResponse{Status: "healthy", Version: "1.0.0", BedrockConfigured: true}, got)
}

func TestQuery(t *testing.T) {
	s, store := newTestServer(t, llm.NewEchoClient())

	rec := do(t, s.Handler(), http.MethodPost, "/query", `{"message":"hello","session_id":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[QueryResponse](t, rec)
	assert.Equal(t, QueryResponse{Response: "hello", SessionID: "s1", Status: "success"}, got)

	history, err := store.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{llm.UserMessage("hello"), llm.AssistantMessage("hello")}, history)
}

func TestQuery_GeneratesSessionID(t *testing.T) {
	s, _ := newTestServer(t, llm.NewMockClient("hi"))

	rec := do(t, s.Handler(), http.MethodPost, "/query", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[QueryResponse](t, rec)
	assert.Equal(t, "hi", got.Response)
	assert.Len(t, got.SessionID, 36)
}

func TestQuery_AppendsToHistory(t *testing.T) {
	client := llm.NewMockClient("ok")
	s, store := newTestServer(t, client)
	require.NoError(t, store.Append(context.Background(), "s", llm.UserMessage("earlier"), llm.AssistantMessage("reply")))

	rec := do(t, s.Handler(), http.MethodPost, "/query", `{"message":"now","session_id":"s"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	history, err := store.History(context.Background(), "s")
	require.NoError(t, err)
	assert.Len(t, history, 4)
	require.NotNil(t, client.LastCall())
	assert.Equal(t, "now", client.LastCall().Messages[0].Content)
}

func TestQuery_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, llm.NewEchoClient())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"missing message", `{"session_id":"s"}`},
		{"empty message", `{"message":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[errorResponse](t, rec).Detail)
		})
	}
}

func TestQuery_NotInitialized(t *testing.T) {
	s := New(WithLogger(quietLogger()))

	rec := do(t, s.Handler(), http.MethodPost, "/query", `{"message":"hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Workflow not initialized", decode[errorResponse](t, rec).Detail)
}

func TestQuery_ReportedErrorIs500(t *testing.T) {
	s, store := newTestServer(t, llm.NewMockClient("").WithError(errors.New("throttled")))

	rec := do(t, s.Handler(), http.MethodPost, "/query", `{"message":"hello","session_id":"s"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Default model node failed: throttled", decode[errorResponse](t, rec).Detail)

	history, err := store.History(context.Background(), "s")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestQuery_FatalErrorIs500(t *testing.T) {
	p, err := workflow.Compile(&design.Document{}, nodes.DefaultRegistry(), workflow.Config{},
		workflow.WithCompileLogger(quietLogger()))
	require.NoError(t, err)
	s := New(WithPipeline(p), WithLogger(quietLogger()))

	rec := do(t, s.Handler(), http.MethodPost, "/query", `{"message":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Detail, llm.ErrNoClient.Error())
}

func TestSession(t *testing.T) {
	s, _ := newTestServer(t, llm.NewEchoClient())
	do(t, s.Handler(), http.MethodPost, "/query", `{"message":"one","session_id":"abc"}`)

	rec := do(t, s.Handler(), http.MethodGet, "/sessions/abc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[SessionResponse](t, rec)
	assert.Equal(t, "abc", got.SessionID)
	assert.Equal(t, []llm.Message{llm.UserMessage("one"), llm.AssistantMessage("one")}, got.Messages)

	rec = do(t, s.Handler(), http.MethodGet, "/sessions/unknown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[SessionResponse](t, rec).Messages)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, llm.NewEchoClient())

	rec := do(t, s.Handler(), http.MethodGet, "/query", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, llm.NewEchoClient())

	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, llm.NewEchoClient())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-done)
}

func TestQuery_ConcurrentSessions(t *testing.T) {
	s, store := newTestServer(t, llm.NewEchoClient())

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			body, _ := json.Marshal(QueryRequest{Message: "m", SessionID: "shared"})
			req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				errs <- errors.New(rec.Body.String())
				return
			}
			errs <- nil
		}(i)
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, <-errs)
	}

	history, err := store.History(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, history, 20)
}

package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepublisher/internal/auth"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/metrics"
	"git.home.luguber.info/inful/sitepublisher/internal/observability"
)

func TestRecovery_WritesInternalError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := Chain(logger, errors.NewHTTPErrorAdapter(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/publish", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
	assert.Contains(t, logs.String(), "HTTP handler panic")
	assert.Contains(t, logs.String(), `"status":500`)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{http.MethodPost, http.MethodOptions}, false)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

type routeRecorder struct {
	metrics.NoopRecorder
	mu     sync.Mutex
	routes []string
	codes  []int
}

func (r *routeRecorder) ObserveHTTPRequest(route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
	r.codes = append(r.codes, status)
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &routeRecorder{}
	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Get("/api/history/{publishID}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/history/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, []string{"/api/history/{publishID}", "unmatched"}, rec.routes)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, rec.codes)
}

func TestRequestContext_CarriesRequestID(t *testing.T) {
	var got string
	h := chimw.RequestID(RequestContext(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = observability.GetContext(r.Context()).RequestID
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, got)
}

func TestRequireAuth(t *testing.T) {
	cfg := auth.Config{Secret: "s3cret", TTL: time.Hour}
	verifier, err := auth.NewVerifier(cfg)
	require.NoError(t, err)
	issuer, err := auth.NewIssuer(cfg)
	require.NoError(t, err)
	token, _, err := issuer.Issue("editor", "")
	require.NoError(t, err)

	var subject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = observability.GetContext(r.Context()).Subject
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireAuth(verifier, errors.NewHTTPErrorAdapter(nil))(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "editor", subject)

	rec = httptest.NewRecorder()
	RequireAuth(nil, nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

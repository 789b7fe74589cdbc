package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleforge/ruleforge/internal/config"
	"github.com/ruleforge/ruleforge/internal/ingest"
	"github.com/ruleforge/ruleforge/internal/notify"
	"github.com/ruleforge/ruleforge/internal/trigger"
)

func newTestServer(secret string) *Server {
	cfg := config.Config{
		Environment:   "production",
		HTTPPort:      "0",
		TriggerSecret: secret,
	}
	deps := Dependencies{
		Trigger: &trigger.Handler{
			Runner:  ingest.NewRunner(nil),
			Elastic: ingest.NewElasticAdapter(""),
			Trinity: ingest.NewTrinityCyberAdapter(),
		},
		Notifier: notify.New(""),
	}
	return New(cfg, deps)
}

func signedToken(t *testing.T, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer("")

	w := httptest.NewRecorder()
	srv.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer("")

	w := httptest.NewRecorder()
	srv.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ruleforge_")
}

func TestTriggerEndpointsRequireToken(t *testing.T) {
	srv := newTestServer("test-secret")

	// No header at all.
	w := httptest.NewRecorder()
	srv.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong scheme.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Basic abc")
	srv.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Token signed with the wrong secret.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/enrich", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other-secret"))
	srv.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngestEndpointValidatesBody(t *testing.T) {
	srv := newTestServer("test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`not json`))
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "test-secret"))
	srv.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestEndpointEmptyEvent(t *testing.T) {
	srv := newTestServer("")

	// An event with no records is a no-op run, not an error.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"Records":[]}`))
	srv.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"records_processed":0`)
}

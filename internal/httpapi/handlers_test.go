package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/statuscheck/internal/domain"
	"github.com/hamed0406/statuscheck/internal/metrics"
	"github.com/hamed0406/statuscheck/internal/repo"
	"github.com/hamed0406/statuscheck/internal/repo/memory"
	"github.com/hamed0406/statuscheck/internal/service"
)

// ---- test helpers ----

type downStore struct{}

var errDown = errors.New("connection refused")

func (downStore) Insert(context.Context, domain.StatusCheck) (domain.StatusCheck, error) {
	return domain.StatusCheck{}, errDown
}
func (downStore) ListAll(context.Context) ([]domain.StatusCheck, error) { return nil, errDown }
func (downStore) Ping(context.Context) error                            { return errDown }
func (downStore) Close() error                                          { return nil }

func setupServer(t *testing.T, store repo.StatusCheckStore, opts Options) *httptest.Server {
	t.Helper()
	reg := metrics.New()
	svc := service.New(store, service.WithMetrics(reg))
	srv := NewServer(zap.NewNop(), svc, reg, opts)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string, hdr map[string]string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// ---- tests ----

func TestRoot_HelloWorld(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api"})

	resp := do(t, http.MethodGet, ts.URL+"/api/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"message": "Hello World"}, decode[map[string]string](t, resp))
}

func TestHealth(t *testing.T) {
	up := setupServer(t, memory.New(), Options{Prefix: "/api"})
	resp := do(t, http.MethodGet, up.URL+"/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.Health{Status: "healthy", Database: "connected"}, decode[service.Health](t, resp))

	down := setupServer(t, downStore{}, Options{Prefix: "/api"})
	resp = do(t, http.MethodGet, down.URL+"/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "health must not fail the request")
	assert.Equal(t, service.Health{Status: "unhealthy", Database: "disconnected"}, decode[service.Health](t, resp))
}

func TestCreateStatusCheck_OK(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api"})

	resp := do(t, http.MethodPost, ts.URL+"/api/status", `{"client_name":"Cypress Test Client"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "Cypress Test Client", body["client_name"])

	id, ok := body["id"].(string)
	require.True(t, ok, "id should be a string")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	stamp, ok := body["timestamp"].(string)
	require.True(t, ok, "timestamp should be a string")
	parsed, err := time.Parse(time.RFC3339Nano, stamp)
	require.NoError(t, err)
	assert.Equal(t, stamp, parsed.UTC().Format(domain.TimestampLayout), "timestamp must round-trip through ISO formatting")
}

func TestCreateStatusCheck_Validation(t *testing.T) {
	store := memory.New()
	ts := setupServer(t, store, Options{Prefix: "/api"})

	cases := map[string]struct {
		body  string
		field string
	}{
		"no body":         {"", "client_name"},
		"empty object":    {`{}`, "client_name"},
		"empty string":    {`{"client_name":""}`, "client_name"},
		"whitespace only": {`{"client_name":"   "}`, "client_name"},
		"null":            {`{"client_name":null}`, "client_name"},
		"non-string":      {`{"client_name":123}`, "client_name"},
		"malformed json":  {`{"client_name":`, "body"},
		"trailing junk":   {`{"client_name":"a"} junk`, "body"},
		"two values":      {`{"client_name":"a"}{"client_name":"b"}`, "body"},
		"trailing brace":  {`{"client_name":"a"}}`, "body"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			resp := do(t, http.MethodPost, ts.URL+"/api/status", c.body, nil)
			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Equal(t, c.field, decode[errorBody](t, resp).Field)
		})
	}

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "no record may be persisted on validation failure")
}

func TestCreateStatusCheck_TrailingWhitespaceAccepted(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api"})
	resp := do(t, http.MethodPost, ts.URL+"/api/status", "{\"client_name\":\"a\"}\n\t ", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a", decode[domain.StatusCheck](t, resp).ClientName)
}

func TestListStatusChecks_EmptyThenPopulated(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api"})

	resp := do(t, http.MethodGet, ts.URL+"/api/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)), "empty list must encode as an array")

	created := decode[domain.StatusCheck](t, do(t, http.MethodPost, ts.URL+"/api/status", `{"client_name":"Test Client"}`, nil))

	resp = do(t, http.MethodGet, ts.URL+"/api/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]domain.StatusCheck](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "Test Client", list[0].ClientName)
}

func TestStorageFailure_Is500(t *testing.T) {
	ts := setupServer(t, downStore{}, Options{Prefix: "/api"})

	resp := do(t, http.MethodPost, ts.URL+"/api/status", `{"client_name":"x"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/status", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRouting_405And404(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api"})

	resp := do(t, http.MethodDelete, ts.URL+"/api/status", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", decode[errorBody](t, resp).Error)

	// routes only exist under the prefix
	resp = do(t, http.MethodGet, ts.URL+"/status", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS_Preflight(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api"})

	resp := do(t, http.MethodOptions, ts.URL+"/api/status", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	bare := do(t, http.MethodOptions, ts.URL+"/api/status", "", nil)
	assert.Equal(t, http.StatusNoContent, bare.StatusCode)
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api", AllowedOrigins: []string{"https://app.example.com"}})

	ok := do(t, http.MethodGet, ts.URL+"/api/status", "", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, "https://app.example.com", ok.Header.Get("Access-Control-Allow-Origin"))

	other := do(t, http.MethodGet, ts.URL+"/api/status", "", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, other.Header.Get("Access-Control-Allow-Origin"))
}

func TestRootPrefix(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: ""})

	resp := do(t, http.MethodGet, ts.URL+"/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello World", decode[map[string]string](t, resp)["message"])

	resp = do(t, http.MethodPost, ts.URL+"/status", `{"client_name":"c"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api"})
	do(t, http.MethodPost, ts.URL+"/api/status", `{"client_name":"c"}`, nil)

	resp := do(t, http.MethodGet, ts.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "statuscheck_status_checks_created_total 1")
}

func TestRateLimit_Applied(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api", RateLimitRPM: 60, RateLimitBurst: 1})

	first := do(t, http.MethodGet, ts.URL+"/api/", "", nil)
	assert.Equal(t, http.StatusOK, first.StatusCode)
	second := do(t, http.MethodGet, ts.URL+"/api/", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestRateLimit_IgnoresForwardedForByDefault(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api", RateLimitRPM: 60, RateLimitBurst: 1})

	var codes []int
	for _, ip := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		resp := do(t, http.MethodGet, ts.URL+"/api/", "", map[string]string{"X-Forwarded-For": ip})
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_TrustProxyKeysOnForwardedFor(t *testing.T) {
	ts := setupServer(t, memory.New(), Options{Prefix: "/api", RateLimitRPM: 60, RateLimitBurst: 1, TrustProxy: true})

	a := do(t, http.MethodGet, ts.URL+"/api/", "", map[string]string{"X-Forwarded-For": "198.51.100.1"})
	b := do(t, http.MethodGet, ts.URL+"/api/", "", map[string]string{"X-Forwarded-For": "198.51.100.2"})
	again := do(t, http.MethodGet, ts.URL+"/api/", "", map[string]string{"X-Forwarded-For": "198.51.100.1"})
	assert.Equal(t, http.StatusOK, a.StatusCode)
	assert.Equal(t, http.StatusOK, b.StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, again.StatusCode)
}

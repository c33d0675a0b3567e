package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testKey    = "integration-test-key"
	testPepper = "test-pepper"
)

type testServer struct {
	*httptest.Server
	logs *observer.ObservedLogs
}

func newTestServer(t *testing.T, cfg *Config) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	core, logs := observer.New(zapcore.InfoLevel)
	s, err := NewServer(ctx, zap.New(core), cfg, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	s.Health.SetReady(true)

	srv := httptest.NewServer(s.Handler)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, logs: logs}
}

func memoryConfig() *Config {
	return &Config{
		Addr:         defaultAddr,
		APIKeyPepper: testPepper,
		SeedAPIKey:   testKey,
		Notify:       NotifyConfig{Default: "email"},
		RateLimit:    RateLimitConfig{Max: 100, Window: time.Minute},
		CORS:         CORSConfig{Origins: []string{"*"}},
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, header map[string]string) (*http.Response, string) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.URL+path, r)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, memoryConfig())

	for _, path := range []string{"/livez", "/readyz"} {
		resp, body := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.JSONEq(t, `{"status":"ok"}`, body, path)
	}
}

func TestServer_SeededCatalog(t *testing.T) {
	s := newTestServer(t, memoryConfig())

	resp, body := s.do(t, http.MethodGet, "/api/product", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 8, strings.Count(body, `"id":`))

	resp, body = s.do(t, http.MethodGet, "/api/product/laptop", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"laptop","name":"Laptop","price":1000,"category":"Electronics"}`, body)
}

func TestServer_PlaceOrder(t *testing.T) {
	s := newTestServer(t, memoryConfig())

	resp, body := s.do(t, http.MethodPost, "/api/order",
		`{"userId":"john","items":[{"productId":"laptop","quantity":1},{"productId":"mouse","quantity":2}]}`,
		map[string]string{"api_key": testKey, "Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"policy":"regular"`)
	assert.Contains(t, body, `"subtotal":1050`)
	assert.Contains(t, body, `"total":997.50`)

	placed := s.logs.FilterMessage("Order placed").All()
	require.Len(t, placed, 1)
	fields := placed[0].ContextMap()
	assert.Equal(t, "john", fields["user_id"])
	assert.Equal(t, "997.50", fields["total"])
	assert.NotEmpty(t, fields["request_id"])
	assert.Equal(t, "default", fields["api_key_id"])

	resp, _ = s.do(t, http.MethodPost, "/api/order",
		`{"userId":"john","items":[{"productId":"laptop","quantity":1}]}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_Quote(t *testing.T) {
	cfg := memoryConfig()
	cfg.Policies = []string{"vip=0.80"}
	s := newTestServer(t, cfg)

	resp, body := s.do(t, http.MethodGet, "/api/policy", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["premium","regular","vip"]`, body)

	resp, body = s.do(t, http.MethodPost, "/api/quote",
		`{"policy":"vip","items":[{"productId":"coffee","quantity":1}]}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"total":15.99`)
}

func TestServer_Middleware(t *testing.T) {
	s := newTestServer(t, memoryConfig())

	t.Run("RequestIDGenerated", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodGet, "/livez", "", nil)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})
	t.Run("RequestIDEchoed", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodGet, "/livez", "", map[string]string{"X-Request-ID": "custom-request-id-12345"})
		assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))
	})
	t.Run("CORSPreflight", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodOptions, "/api/product", "", map[string]string{
			"Origin":                        "http://example.com",
			"Access-Control-Request-Method": "GET",
		})
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
	})
	t.Run("RateLimitHeaders", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodGet, "/api/product", "", nil)
		assert.Equal(t, "100", resp.Header.Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
	})
	t.Run("UnknownRoute", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodGet, "/api/unknown", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestServer_RateLimitExceeded(t *testing.T) {
	cfg := memoryConfig()
	cfg.RateLimit.Max = 2
	s := newTestServer(t, cfg)

	for range 2 {
		resp, _ := s.do(t, http.MethodGet, "/api/policy", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := s.do(t, http.MethodGet, "/api/policy", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "rate limit exceeded")
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PolkaTrace/trace_layer/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowAll(t *testing.T) {
	handler := NewCORSMiddleware([]string{"*"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := NewCORSMiddleware([]string{"http://dashboard.local"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	handler := NewCORSMiddleware([]string{"http://dashboard.local"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

func TestTracingGeneratesTraceID(t *testing.T) {
	log := logging.New("test", "error", "json")
	handler := NewTracingMiddleware(log).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("missing X-Trace-ID response header")
	}
}

func TestTracingHonorsInboundTraceID(t *testing.T) {
	log := logging.New("test", "error", "json")
	handler := NewTracingMiddleware(log).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Trace-ID"); got != "trace-123" {
		t.Errorf("X-Trace-ID = %q, want trace-123", got)
	}
}

func TestRateLimiter(t *testing.T) {
	log := logging.New("test", "error", "json")
	handler := NewRateLimiter(1, 2, log).Handler(okHandler())

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("burst requests = %v, want first two OK", statuses)
	}
	if statuses[3] != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", statuses[3])
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	log := logging.New("test", "error", "json")
	handler := NewRateLimiter(1, 1, log).Handler(okHandler())

	for _, addr := range []string{"10.0.0.1:4000", "10.0.0.2:4000"} {
		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("first request from %s = %d, want 200", addr, rec.Code)
		}
	}
}

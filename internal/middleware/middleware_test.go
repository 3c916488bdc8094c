package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"omnishelf-dashboard/internal/config"
	"omnishelf-dashboard/internal/observability"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "a,b,c,handler" {
		t.Errorf("unexpected order %v", order)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"propagated", "abc-123", true},
		{"too long", strings.Repeat("x", maxRequestIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = observability.GetRequestID(r.Context())
			}))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				r.Header.Set("X-Request-ID", tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if seen == "" || w.Header().Get("X-Request-ID") != seen {
				t.Fatalf("expected header and context to agree, got %q and %q", w.Header().Get("X-Request-ID"), seen)
			}
			if (seen == tt.incoming) != tt.keep {
				t.Errorf("expected keep=%v, got %q", tt.keep, seen)
			}
			if !tt.keep && len(seen) != 36 {
				t.Errorf("expected a uuid, got %q", seen)
			}
		})
	}
}

func TestLogger_RecordsStatusAndBytes(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pot", nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON log line, got %q: %v", logs.String(), err)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("expected status 418, got %v", entry["status"])
	}
	if entry["bytes"] != float64(15) {
		t.Errorf("expected 15 bytes, got %v", entry["bytes"])
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("expected error envelope, got %s", w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	cfg := config.SecurityConfig{AllowedOrigins: []string{"http://allowed.test"}}
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed", http.MethodGet, "http://allowed.test", "http://allowed.test", http.StatusOK},
		{"blocked", http.MethodGet, "http://evil.test", "", http.StatusOK},
		{"preflight", http.MethodOptions, "http://allowed.test", "http://allowed.test", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/alerts/1/resolve", nil)
			r.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("expected origin %q, got %q", tt.wantOrigin, got)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PUT") {
				t.Error("expected PUT to be allowed")
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 1, RateLimitBurst: 2}
	limiter := NewRateLimiter(cfg)
	h := RateLimit(limiter, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 200, 200, 429, got %v", codes)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:5000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("expected other client to pass, got %d", w.Code)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: false, RateLimitRPS: 1, RateLimitBurst: 1})
	for i := 0; i < 10; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatal("expected disabled limiter to allow everything")
		}
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{EnableRateLimit: true, RateLimitRPS: 5, RateLimitBurst: 5})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(10 * time.Minute)
	limiter.Allow("10.0.0.2")

	if removed := limiter.Cleanup(5 * time.Minute); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := limiter.visitors["10.0.0.2"]; !ok {
		t.Error("expected recent visitor to be kept")
	}
}

func TestTrustedProxy(t *testing.T) {
	cfg := config.SecurityConfig{TrustedProxies: []string{"127.0.0.1"}}
	var forwarded string
	h := TrustedProxy(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = r.Header.Get("X-Forwarded-For")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:4000"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if forwarded != "" {
		t.Errorf("expected header stripped for untrusted peer, got %q", forwarded)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:4000"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if forwarded != "1.2.3.4" {
		t.Errorf("expected header kept for trusted proxy, got %q", forwarded)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, header := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if w.Header().Get(header) == "" {
			t.Errorf("expected %s to be set", header)
		}
	}
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.Flush()
	if !rec.Flushed {
		t.Error("expected flush to reach the recorder")
	}
	if rw.Unwrap() != rec {
		t.Error("expected Unwrap to return the underlying writer")
	}
}

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"omnishelf-dashboard/internal/backend"
	"omnishelf-dashboard/internal/config"
	"omnishelf-dashboard/internal/events"
	"omnishelf-dashboard/internal/middleware"
	"omnishelf-dashboard/internal/server"
	"omnishelf-dashboard/internal/services"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stock/summary", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"product_name":"milk","category":"Dairy","price":1.5,"total_count":8,"inventory_value":12}]`)
	})
	mux.HandleFunc("GET /alerts", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	mux.HandleFunc("GET /analytics/summary", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"total_products":1}`)
	})
	mux.HandleFunc("GET /inventory/recent-uploads", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"sessions":[]}`)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"healthy"}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestDashboard(t *testing.T) *services.Dashboard {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus(nil, "", logger)
	t.Cleanup(func() { _ = bus.Close() })
	client := backend.NewClient(newUpstream(t).URL, 5*time.Second, logger)
	return services.NewDashboard(client, bus, logger, services.Options{})
}

func testConfig() *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{MaxUploadSize: 1 << 20},
		Events:  config.EventsConfig{Store: "memory", RefreshKey: "test"},
		Security: config.SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  50,
			AllowedOrigins:  []string{"http://localhost:8084"},
		},
	}
}

func TestServer_Routes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	templateHandlers := &server.TemplateHandlers{Dashboard: handleDashboard, SmartCart: handleSmartCart}
	srv := server.NewServer(newTestDashboard(t), logger, templateHandlers, 1<<20)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		contentType string
	}{
		{"dashboard", "/", http.StatusOK, "text/html"},
		{"smartcart page", "/smartcart", http.StatusOK, "text/html"},
		{"health", "/health", http.StatusOK, "application/json"},
		{"overview", "/api/overview", http.StatusOK, "application/json"},
		{"inventory", "/api/inventory", http.StatusOK, "application/json"},
		{"alerts", "/api/alerts", http.StatusOK, "application/json"},
		{"uploads", "/api/uploads/recent", http.StatusOK, "application/json"},
		{"backend health", "/admin/backend-health", http.StatusOK, "application/json"},
		{"stats", "/admin/stats", http.StatusOK, "application/json"},
		{"sse overview", "/sse/overview", http.StatusOK, "text/event-stream"},
		{"sse inventory", "/sse/inventory", http.StatusOK, "text/event-stream"},
		{"sse alerts", "/sse/alerts", http.StatusOK, "text/event-stream"},
		{"sse uploads", "/sse/uploads", http.StatusOK, "text/event-stream"},
		{"unknown", "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.contentType == "" {
				return
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, tt.contentType) {
				t.Errorf("expected content-type %q, got %q", tt.contentType, ct)
			}
			if tt.contentType == "application/json" {
				var result map[string]any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if result["success"] != true {
					t.Errorf("expected success=true, got %v", result["success"])
				}
			}
		})
	}
}

func TestServer_MethodMismatch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.NewServer(newTestDashboard(t), logger, &server.TemplateHandlers{Dashboard: handleDashboard, SmartCart: handleSmartCart}, 1<<20)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/alerts/1/resolve", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestHandleDashboard(t *testing.T) {
	w := httptest.NewRecorder()
	handleDashboard(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheMaxAge {
		t.Errorf("expected cache-control %q, got %q", cacheMaxAge, cc)
	}
	if !strings.Contains(w.Body.String(), "/sse/stream") {
		t.Error("expected dashboard page to open the refresh stream")
	}
}

func TestOpenFlagStore(t *testing.T) {
	tests := []struct {
		name    string
		store   string
		path    string
		wantErr bool
	}{
		{"memory", "memory", "", false},
		{"sqlite", "sqlite", filepath.Join(t.TempDir(), "events.db"), false},
		{"unknown", "etcd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Events.Store = tt.store
			cfg.Events.SQLitePath = tt.path

			store, err := openFlagStore(cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("openFlagStore() error = %v", err)
			}
			defer store.Close()

			ctx := context.Background()
			if err := store.Set(ctx, "k", "1"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if ok, err := store.Take(ctx, "k"); err != nil || !ok {
				t.Errorf("expected flag to be set, got %v, %v", ok, err)
			}
		})
	}
}

func TestNewHandler_Middleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	handler := newHandler(newTestDashboard(t), logger, cfg, middleware.NewRateLimiter(cfg.Security))

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if id := w.Header().Get("X-Request-ID"); id != "req-123" {
		t.Errorf("expected request id to be echoed, got %q", id)
	}
	if v := w.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("expected security headers, got %q", v)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}

func TestNewHandler_Preflight(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	handler := newHandler(newTestDashboard(t), logger, cfg, middleware.NewRateLimiter(cfg.Security))

	r := httptest.NewRequest(http.MethodOptions, "/api/alerts/1/resolve", nil)
	r.Header.Set("Origin", "http://localhost:8084")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8084" {
		t.Errorf("expected allowed origin, got %q", got)
	}
}

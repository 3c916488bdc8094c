package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"omnishelf-dashboard/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{
		ReadTimeout:     time.Second,
		ShutdownTimeout: 2 * time.Second,
	}}
}

func TestGracefulServer_RunsHooksOnSignal(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, logger, testConfig())

	var closed atomic.Int32
	gs.RegisterShutdownHook("events", func(ctx context.Context) error {
		closed.Add(1)
		return nil
	})
	gs.RegisterShutdownHook("streams", func(ctx context.Context) error {
		closed.Add(1)
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- gs.ListenAndServe() }()

	time.Sleep(50 * time.Millisecond)
	gs.signal <- syscall.SIGTERM

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}

	if closed.Load() != 2 {
		t.Errorf("expected 2 hooks to run, got %d", closed.Load())
	}
	if !strings.Contains(logs.String(), "hook=events") {
		t.Errorf("expected hook name in logs, got %s", logs.String())
	}
}

func TestGracefulServer_HookErrorReturned(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, logger, testConfig())

	hookErr := errors.New("flush failed")
	gs.RegisterShutdownHook("store", func(ctx context.Context) error { return hookErr })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := gs.shutdown(ctx)
	if !errors.Is(err, hookErr) {
		t.Errorf("expected hook error, got %v", err)
	}
}

func TestGracefulServer_JoinsHookErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, logger, testConfig())

	storeErr := errors.New("store close failed")
	cacheErr := errors.New("cache close failed")
	gs.RegisterShutdownHook("store", func(ctx context.Context) error { return storeErr })
	gs.RegisterShutdownHook("cache", func(ctx context.Context) error { return cacheErr })
	gs.RegisterShutdownHook("ok", func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := gs.shutdown(ctx)
	if !errors.Is(err, storeErr) || !errors.Is(err, cacheErr) {
		t.Errorf("expected both hook errors, got %v", err)
	}
	if !strings.Contains(err.Error(), "shutdown hook cache") {
		t.Errorf("expected hook name in error, got %v", err)
	}
}

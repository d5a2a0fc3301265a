package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/safeboy/safeboy/internal/infra/sqlite/sqlitetest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "0.0.0.0" || cfg.Port != 8080 {
		t.Fatalf("addr = %s:%d; want 0.0.0.0:8080", cfg.Host, cfg.Port)
	}
	if cfg.WriteTimeout <= 60*time.Second {
		t.Fatalf("WriteTimeout = %v; must exceed the default LLM timeout", cfg.WriteTimeout)
	}
	if cfg.ShutdownTimeout <= 0 {
		t.Fatal("ShutdownTimeout should be positive")
	}
}

func TestNewServer_ConfiguresAddressAndHandler(t *testing.T) {
	db := sqlitetest.Open(t)
	cfg := Config{Host: "127.0.0.1", Port: 18080, ReadTimeout: time.Second, WriteTimeout: 2 * time.Second, IdleTimeout: 3 * time.Second}
	s := NewServer(db, http.NotFoundHandler(), cfg)

	if s.http.Addr != "127.0.0.1:18080" {
		t.Fatalf("Addr = %q; want %q", s.http.Addr, "127.0.0.1:18080")
	}
	if s.http.Handler == nil {
		t.Fatal("Handler should not be nil")
	}
	if s.http.WriteTimeout != 2*time.Second {
		t.Fatalf("WriteTimeout = %v", s.http.WriteTimeout)
	}
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	db := sqlitetest.Open(t)

	// Reserve a free port, then release it for the server.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cfg := DefaultConfig()
	cfg.Host, cfg.Port, cfg.ShutdownTimeout = "127.0.0.1", port, time.Second
	s := NewServer(db, http.NotFoundHandler(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v; want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if err := db.Ping(); err == nil {
		t.Error("database should be closed after shutdown")
	}
}

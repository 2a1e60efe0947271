package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codr1/Padelicious/internal/config"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
app:
  name: padelicious
  environment: test
  port: 8080
database:
  driver: sqlite
  filename: %q
storage:
  driver: local
  local_dir: %q
`, filepath.Join(dir, "db", "test.db"), filepath.Join(dir, "proofs"))))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}

	deps, err := buildDependencies(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build dependencies: %v", err)
	}
	t.Cleanup(deps.Close)
	return newServer(cfg, deps).Handler
}

func TestServerRoutes(t *testing.T) {
	handler := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/health", http.StatusOK, "OK"},
		{http.MethodGet, "/api/v1/courts", http.StatusOK, "[]"},
		{http.MethodPost, "/api/v1/courts", http.StatusUnauthorized, ""},
		{http.MethodGet, "/api/v1/reservations", http.StatusUnauthorized, ""},
		{http.MethodGet, "/api/v1/payments/pending", http.StatusUnauthorized, ""},
		{http.MethodGet, "/api/v1/memberships", http.StatusOK, "[]"},
		{http.MethodGet, "/api/v1/notifications", http.StatusUnauthorized, ""},
		{http.MethodPost, "/api/v1/webhooks/stripe", http.StatusServiceUnavailable, ""},
		{http.MethodGet, "/api/v1/auth/me", http.StatusUnauthorized, ""},
		{http.MethodDelete, "/api/v1/courts", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.body != "" && strings.TrimSpace(rec.Body.String()) != tt.body {
				t.Fatalf("expected body %q, got %q", tt.body, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatalf("expected request id header")
			}
		})
	}
}

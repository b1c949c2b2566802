package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dyphal/internal/middleware"
	"dyphal/internal/startup"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>album</html>"), 0o644); err != nil {
		t.Fatalf("failed to write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "trip.json"), []byte(`{"albumVersion":2}`), 0o644); err != nil {
		t.Fatalf("failed to write album: %v", err)
	}

	s, err := New(dir, Config{Addr: "127.0.0.1:0", Logging: middleware.DefaultLoggingConfig()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, dir
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewRejectsFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "album.dyphal")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(file, Config{}); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("Expected ErrNotDirectory, got %v", err)
	}
	if _, err := New(filepath.Join(t.TempDir(), "missing"), Config{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	s, dir := newTestServer(t)

	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != "healthy" || resp.Album != dir {
		t.Errorf("Unexpected health response: %+v", resp)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if rec := get(t, s.Handler(), "/health"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 once the album is gone, got %d", rec.Code)
	}
}

func TestVersion(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s.Handler(), "/version")
	var info startup.BuildInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if info.Version != startup.Version {
		t.Errorf("Expected version %s, got %s", startup.Version, info.Version)
	}
}

func TestStaticFiles(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{path: "/", wantStatus: http.StatusOK, wantBody: "<html>album</html>"},
		{path: "/trip.json", wantStatus: http.StatusOK, wantBody: `{"albumVersion":2}`},
		{path: "/missing.jpg", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("Expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
			if rec.Header().Get("Cache-Control") != "no-cache" {
				t.Errorf("Expected no-cache, got %q", rec.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("Expected Prometheus exposition output")
	}
}

func TestServeAndShutdown(t *testing.T) {
	s, _ := newTestServer(t)

	ln, err := s.Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get(URL(ln.Addr()) + "trip.json")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != `{"albumVersion":2}` {
		t.Errorf("Unexpected body %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		addr net.Addr
		want string
	}{
		{addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8080}, want: "http://127.0.0.1:8080/"},
		{addr: &net.TCPAddr{IP: net.IPv4zero, Port: 9000}, want: "http://localhost:9000/"},
		{addr: &net.TCPAddr{IP: net.ParseIP("::1"), Port: 80}, want: "http://[::1]:80/"},
	}

	for _, tt := range tests {
		if got := URL(tt.addr); got != tt.want {
			t.Errorf("URL(%v) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

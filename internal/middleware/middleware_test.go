package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"dyphal/internal/logging"
	"dyphal/internal/metrics"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(os.Stderr) })
	return &buf
}

func TestResponseWriterWriteHeader(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}

	rw.WriteHeader(http.StatusNotFound)
	// Write header again - should be ignored
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}
}

func TestResponseWriterWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	if _, err := rw.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := rw.Write([]byte("album")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if rw.bytesWritten != 11 {
		t.Errorf("Expected 11 bytes written, got %d", rw.bytesWritten)
	}
	if rec.Body.String() != "hello album" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}
}

func TestWrapReusesWriter(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())
	if wrap(rw) != rw {
		t.Error("Expected wrap to return the existing responseWriter")
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "/index.html", want: "/index.html"},
		{name: "newline", in: "/a\nFAKE LINE", want: "/a FAKE LINE"},
		{name: "carriage return", in: "a\rb", want: "a b"},
		{name: "ansi escape", in: "\x1b[31mred", want: "[31mred"},
		{name: "null byte", in: "a\x00b", want: "ab"},
		{name: "tab kept", in: "a\tb", want: "a\tb"},
		{name: "delete", in: "a\x7fb", want: "ab"},
		{name: "unicode", in: "/photos/été.jpg", want: "/photos/été.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.in); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatW3C(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/trip.json?x=1", nil)
	r.RemoteAddr = "192.0.2.1:54321"
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11)")
	rw := newResponseWriter(httptest.NewRecorder())
	rw.WriteHeader(http.StatusNotFound)

	now := time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)
	got := formatW3C(now, r, rw, 12*time.Millisecond)

	want := `2024-03-05 10:20:30 192.0.2.1 GET /trip.json x=1 404 0 12 "Mozilla/5.0 (X11)"`
	if got != want {
		t.Errorf("formatW3C =\n%s\nwant\n%s", got, want)
	}
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		config  LoggingConfig
		wantLog bool
	}{
		{name: "page logged", path: "/index.html", config: DefaultLoggingConfig(), wantLog: true},
		{name: "album logged", path: "/trip.json", config: DefaultLoggingConfig(), wantLog: true},
		{name: "photo skipped", path: "/photos/A.JPG", config: DefaultLoggingConfig(), wantLog: false},
		{name: "photo logged with assets", path: "/photos/a.jpg", config: LoggingConfig{LogAssets: true, AssetExtensions: []string{".jpg"}}, wantLog: true},
		{name: "health skipped", path: "/health", config: LoggingConfig{}, wantLog: false},
		{name: "skip path", path: "/metrics", config: LoggingConfig{SkipPaths: []string{"/metrics"}, LogHealthChecks: true}, wantLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			handler := Logger(tt.config)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", rec.Code)
			}
			logged := strings.Contains(buf.String(), " GET "+tt.path+" ")
			if logged != tt.wantLog {
				t.Errorf("logged = %v, want %v (log: %q)", logged, tt.wantLog, buf.String())
			}
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	okBefore := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "200"))
	missingBefore := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "404"))

	for _, path := range []string{"/index.html", "/missing.jpg", "/metrics", "/health"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "200")) - okBefore; got != 1 {
		t.Errorf("Expected 1 successful request recorded, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "404")) - missingBefore; got != 1 {
		t.Errorf("Expected 1 missing request recorded, got %v", got)
	}
}

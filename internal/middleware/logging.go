package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"dyphal/internal/logging"
)

var log = logging.Component("http")

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths []string

	// LogAssets enables logging of photo, thumbnail and template requests.
	// An album page load fetches dozens of them.
	LogAssets       bool
	AssetExtensions []string
	LogHealthChecks bool
}

// DefaultLoggingConfig logs page, album and API requests but not the
// images and template assets they pull in.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		AssetExtensions: []string{".css", ".js", ".ico", ".png", ".jpg", ".jpeg", ".gif", ".webp"},
		LogHealthChecks: true,
	}
}

// Logger returns HTTP logging middleware using W3C Extended Log Format
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)
			log.Info("%s", formatW3C(time.Now().UTC(), r, wrapped, time.Since(start)))
		})
	}
}

// formatW3C renders one log line with the fields
// date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken cs(User-Agent)
func formatW3C(now time.Time, r *http.Request, rw *responseWriter, duration time.Duration) string {
	return fmt.Sprintf("%s %s %s %s %s %s %d %d %d %s",
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		orDash(sanitizeLogField(clientIP(r))),
		orDash(sanitizeLogField(r.Method)),
		orDash(sanitizeLogField(r.URL.Path)),
		orDash(sanitizeLogField(r.URL.RawQuery)),
		rw.statusCode,
		rw.bytesWritten,
		duration.Milliseconds(),
		escapeW3CField(orDash(sanitizeLogField(r.Header.Get("User-Agent")))),
	)
}

// sanitizeLogField removes control characters that could be used to forge
// log lines or inject terminal escapes. Newlines become spaces; tabs are
// kept.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// escapeW3CField quotes a field holding spaces, tabs or quotes, doubling
// any embedded quotes.
func escapeW3CField(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

var healthCheckPaths = map[string]bool{
	"/health": true,
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}

	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}

	if !config.LogAssets {
		lower := strings.ToLower(path)
		for _, ext := range config.AssetExtensions {
			if strings.HasSuffix(lower, ext) {
				return true
			}
		}
	}

	return false
}

func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return strings.Trim(ip, "[]")
}

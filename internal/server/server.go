// Package server serves a generated album over HTTP so that it can be
// previewed in a browser before it is published.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dyphal/internal/logging"
	"dyphal/internal/middleware"
	"dyphal/internal/startup"
)

var log = logging.Component("server")

// DefaultShutdownTimeout bounds how long Run waits for requests in flight.
const DefaultShutdownTimeout = 10 * time.Second

// ErrNotDirectory is returned when the album path is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Config configures a preview server.
type Config struct {
	// Addr is the listen address. Port 0 picks a free port.
	Addr            string
	Logging         middleware.LoggingConfig
	ShutdownTimeout time.Duration
}

// Server serves one album directory.
type Server struct {
	dir     string
	cfg     Config
	router  *mux.Router
	started time.Time
}

// New returns a server for the album in dir.
func New(dir string, cfg Config) (*Server, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{dir: dir, cfg: cfg, started: time.Now()}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", s.version).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(noCache(http.FileServer(http.Dir(s.dir))))
	return r
}

// Router returns the routes without middleware.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the routes wrapped in logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = middleware.Metrics(middleware.DefaultMetricsConfig())(h)
	h = middleware.Logger(s.cfg.Logging)(h)
	return h
}

// Listen opens the listening socket.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return ln, nil
}

// Serve handles connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown error: %v", err)
		return err
	}
	startup.LogShutdownStepComplete("HTTP server stopped")
	return nil
}

// URL returns the address a browser should open for a listener.
func URL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String() + "/"
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

type healthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Album        string `json:"album"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	response := healthResponse{
		Status:       "healthy",
		Version:      startup.Version,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		Album:        s.dir,
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	status := http.StatusOK
	if _, err := os.Stat(s.dir); err != nil {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (s *Server) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, startup.GetBuildInfo())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to encode response: %v", err)
	}
}

// noCache stops browsers from keeping stale copies of an album that is
// being regenerated while it is previewed.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

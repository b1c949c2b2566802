package startup

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"dyphal/internal/exttool"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	// Check that all fields are populated
	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS != runtime.GOOS {
		t.Errorf("Expected OS=%s, got %s", runtime.GOOS, info.OS)
	}
	if info.Arch != runtime.GOARCH {
		t.Errorf("Expected Arch=%s, got %s", runtime.GOARCH, info.Arch)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "12.40\n", want: "12.40"},
		{in: "Version: ImageMagick 6.9.11\nCopyright: ...\n", want: "Version: ImageMagick 6.9.11"},
		{in: "\n  padded  \nsecond", want: "padded"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := firstLine(tt.in); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProbeTools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shell scripts as fake tools")
	}

	dir := t.TempDir()
	script := "#!/bin/sh\necho 12.40\n"
	if err := os.WriteFile(filepath.Join(dir, "exiftool"), []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake exiftool: %v", err)
	}
	t.Setenv("PATH", dir)

	statuses := ProbeTools(context.Background())
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 statuses, got %d", len(statuses))
	}

	if statuses[0].Name != "exiftool" || statuses[0].Err != nil || statuses[0].Version != "12.40" {
		t.Errorf("Unexpected exiftool status: %+v", statuses[0])
	}
	if statuses[1].Name != "convert" || !errors.Is(statuses[1].Err, exttool.ErrNotInstalled) {
		t.Errorf("Expected convert to be reported missing, got %+v", statuses[1])
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	r.HandleFunc("/version", noop).Methods("GET")
	r.HandleFunc("/health", noop).Methods("GET", "HEAD")
	r.PathPrefix("/").Handler(http.NotFoundHandler())

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}

	var got []string
	for _, route := range routes {
		got = append(got, route.Method+" "+route.Path)
	}
	want := []string{"* /", "GET /health", "HEAD /health", "GET /version"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("GetRoutes = %v, want %v", got, want)
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)

	if !strings.Contains(buf.String(), "/_____/") {
		t.Errorf("Expected banner art, got %q", buf.String())
	}
}

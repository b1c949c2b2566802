package startup

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"dyphal/internal/exttool"
	"dyphal/internal/logging"
	"dyphal/internal/safefile"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

const rule = "------------------------------------------------------------"

// Section logs a section header.
func Section(title string) {
	logging.Info("")
	logging.Info(rule)
	logging.Info("%s", strings.ToUpper(title))
	logging.Info(rule)
}

// PrintBanner writes the banner to w and logs the build information.
func PrintBanner(w io.Writer) {
	banner := `
------------------------------------------------------------
    ____              __          __
   / __ \__  ______  / /_  ____ _/ /
  / / / / / / / __ \/ __ \/ __ '/ /
 / /_/ / /_/ / /_/ / / / / /_/ / /
/_____/\__, / .___/_/ /_/\__,_/_/
      /____/_/
------------------------------------------------------------`
	fmt.Fprintln(w, banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

// ToolStatus is the result of probing one external program.
type ToolStatus struct {
	Name    string
	Version string
	Err     error
}

// probe describes how to ask a tool for its version.
type probe struct {
	name string
	args []string
}

var probes = []probe{
	{name: "exiftool", args: []string{"-ver"}},
	{name: "convert", args: []string{"-version"}},
}

// ProbeTools asks each external program for its version.
func ProbeTools(ctx context.Context) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(probes))
	for _, p := range probes {
		out, err := exttool.Run(ctx, exttool.Command{Tool: p.name, Args: p.args, Path: "-"})
		status := ToolStatus{Name: p.name, Err: err}
		if err == nil {
			status.Version = firstLine(string(out))
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// LogEnvironment logs the system information and the availability of the
// external programs and of /proc/<pid>/fd.
func LogEnvironment(ctx context.Context) []ToolStatus {
	Section("system information")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	statuses := ProbeTools(ctx)
	for _, s := range statuses {
		if s.Err != nil {
			logging.Warn("  %s is not usable: %v", s.Name, s.Err)
			continue
		}
		logging.Info("  [OK] %s %s", s.Name, s.Version)
	}

	if safefile.HaveProcFD() {
		logging.Info("  [OK] /proc/<pid>/fd is available")
	} else {
		logging.Warn("  /proc/<pid>/fd is not available; files may change while they are read")
	}
	return statuses
}

// SessionInfo summarises the settings of a generator session.
type SessionInfo struct {
	Threads       int
	Extractor     string
	Converter     string
	PhotoQuality  int
	MetadataCache string
	ConfigPath    string
}

// LogSession logs the settings a session starts with.
func LogSession(info SessionInfo) {
	Section("session")
	logging.Info("  Configuration:   %s", info.ConfigPath)
	logging.Info("  Threads:         %d", info.Threads)
	logging.Info("  Extractor:       %s", info.Extractor)
	logging.Info("  Converter:       %s", info.Converter)
	logging.Info("  Photo quality:   %d", info.PhotoQuality)
	if info.MetadataCache != "" {
		logging.Info("  Metadata cache:  %s", info.MetadataCache)
	} else {
		logging.Info("  Metadata cache:  DISABLED")
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Static file routes match every method
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: pathTemplate})
		}
		return nil
	})

	sort.SliceStable(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })
	return routes, err
}

// LogHTTPRoutes logs the preview routes at debug level.
func LogHTTPRoutes(router *mux.Router, dir string) {
	Section("preview server setup")
	logging.Info("  Serving:         %s", dir)

	if !logging.IsDebugEnabled() {
		return
	}
	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// LogServerStarted logs the preview address.
func LogServerStarted(url string, startup time.Duration) {
	Section("server started")
	logging.Info("  Startup time:    %v", startup)
	logging.Info("  Album:           %s", url)
	logging.Info("  Metrics:         %s/metrics", strings.TrimSuffix(url, "/"))
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	Section(fmt.Sprintf("shutdown initiated (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

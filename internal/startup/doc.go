// Package startup holds build information and the lifecycle logging of
// the dyphal command: the banner, the environment probes run before any
// album work, and the preview server's start and shutdown messages.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via
// [GetBuildInfo]:
//
//	go build -ldflags "-X dyphal/internal/startup.Version=1.2.0"
//
// # Environment Probes
//
// [ProbeTools] looks for the external programs the generator can use
// (exiftool and ImageMagick's convert) and for /proc/<pid>/fd, which makes
// staged file paths race-free. [LogEnvironment] prints the results as
// [OK] lines, warning about anything missing.
//
// # Lifecycle Logging
//
//   - [PrintBanner]: name, version and start time
//   - [LogSession]: the settings a generator session runs with
//   - [LogHTTPRoutes]: registered preview routes (debug level)
//   - [LogServerStarted]: preview address and startup duration
//   - [LogShutdownInitiated], [LogShutdownStep], [LogShutdownComplete]
package startup

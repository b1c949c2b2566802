/*
Package filesystem wraps the few filesystem operations the generator performs
on user-supplied paths (opening photos, opening and creating output
directories) with retry logic for NFS stale file handle errors.

Photo libraries frequently live on network mounts. An ESTALE (errno 116)
returned while staging a photo or anchoring an output directory is retried
with exponential backoff; every other error is returned immediately.

# Usage

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())

	dir, err := filesystem.OpenDirWithRetry(outDir, filesystem.DefaultRetryConfig())

Retry exposes the loop itself for callers with their own operation:

	err := filesystem.Retry("open", path, cfg, func() error { ... })

# Metrics

Retries are reported through the Observer installed with SetObserver. The
metrics package provides the Prometheus implementation.
*/
package filesystem

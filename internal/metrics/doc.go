// Package metrics provides Prometheus instrumentation for the album generator.
//
// All metrics are prefixed with "dyphal_" and registered with the default
// registry through promauto. The preview server exposes them at /metrics.
//
// # Metric Categories
//
// ## Task orchestration
//
//   - TasksTotal: finished tasks by kind and outcome (succeeded, failed, cancelled)
//   - TaskDuration: execution time by kind, measured from the moment a worker
//     picks the task up
//   - TasksQueued: tasks waiting for a worker
//   - BatchesActive: batches that have not completed
//   - BatchesTotal / BatchErrors: completed batches and the failures their
//     barriers reported
//   - CancellationsTotal: cancel-everything requests
//
// ## External processes
//
//   - ProcessDuration: exiftool and convert invocations by status
//     (success, error, timeout, missing)
//
// ## Staging and photos
//
//   - StagingFailures: files that could not be staged, by reason
//   - PhotosOpen: photos currently holding a staged descriptor
//   - MetadataCacheLookups: extractor cache results (hit, miss, error)
//
// ## Filesystem retries
//
// Recorded through the filesystem.Observer implementation returned by
// NewFilesystemObserver, which keeps the filesystem package free of a
// Prometheus dependency.
//
// ## Preview server and publishing
//
//   - HTTPRequestsTotal / HTTPRequestDuration
//   - UploadsTotal / UploadBytes
//
// ## Memory
//
//   - MemoryUsageRatio: sampled heap allocation over the memory limit
//   - MemoryPaused / MemoryPauses: in-process conversion held back for memory
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape.
package metrics

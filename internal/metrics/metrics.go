package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task orchestration metrics
var (
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_tasks_total",
			Help: "Total number of background tasks finished, by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: succeeded, failed, cancelled
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dyphal_task_duration_seconds",
			Help:    "Time spent executing a background task, excluding queueing",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"kind"},
	)

	TasksQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dyphal_tasks_queued",
			Help: "Number of tasks waiting for a worker",
		},
	)

	BatchesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dyphal_batches_active",
			Help: "Number of batches that have not yet completed",
		},
	)

	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_batches_total",
			Help: "Total number of batches completed, by kind",
		},
		[]string{"kind"},
	)

	BatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_batch_errors_total",
			Help: "Total number of task failures reported by batch barriers",
		},
		[]string{"kind"},
	)

	CancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dyphal_cancellations_total",
			Help: "Total number of cancel-everything requests",
		},
	)
)

// External process metrics
var (
	ProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dyphal_process_duration_seconds",
			Help:    "Duration of external tool invocations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
		[]string{"tool", "status"}, // status: success, error, timeout, missing
	)
)

// Staging and photo metrics
var (
	StagingFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_staging_failures_total",
			Help: "Total number of files that could not be staged",
		},
		[]string{"reason"}, // not_found, permission, collision, other
	)

	PhotosOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dyphal_photos_open",
			Help: "Number of photos currently holding a staged file handle",
		},
	)

	MetadataCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_metadata_cache_lookups_total",
			Help: "Metadata cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_filesystem_retry_attempts_total",
			Help: "Total number of retry attempts after a stale file handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_filesystem_retry_success_total",
			Help: "Total number of operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_filesystem_retry_failures_total",
			Help: "Total number of operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation"},
	)
)

// Preview server metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_http_requests_total",
			Help: "Total number of preview HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dyphal_http_request_duration_seconds",
			Help:    "Preview HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Publish metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dyphal_uploads_total",
			Help: "Total number of album files uploaded, by status",
		},
		[]string{"status"},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dyphal_upload_bytes_total",
			Help: "Total bytes uploaded to object storage",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dyphal_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dyphal_memory_paused",
			Help: "1 while in-process image decoding is paused for memory, 0 otherwise",
		},
	)

	MemoryPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dyphal_memory_pauses_total",
			Help: "Number of times in-process image decoding was paused for memory",
		},
	)
)

package metrics

// TaskKinds lists the task kinds the generator schedules. Kept here so the
// label sets exist before the first task runs.
var TaskKinds = []string{
	"add_photo", "remove_photo", "create_directory", "save_album",
	"photo_json", "resize", "thumbnail", "copy_template", "load_album",
	"upload", "barrier",
}

// BatchKinds lists the batch kinds the generator starts.
var BatchKinds = []string{"add_photos", "remove_photos", "generate", "install_template", "load_album", "publish"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, kind := range TaskKinds {
		for _, outcome := range []string{"succeeded", "failed", "cancelled"} {
			TasksTotal.WithLabelValues(kind, outcome)
		}
		TaskDuration.WithLabelValues(kind)
	}

	for _, kind := range BatchKinds {
		BatchesTotal.WithLabelValues(kind)
		BatchErrors.WithLabelValues(kind)
	}

	for _, tool := range []string{"exiftool", "convert"} {
		for _, status := range []string{"success", "error", "timeout", "missing"} {
			ProcessDuration.WithLabelValues(tool, status)
		}
	}

	for _, reason := range []string{"not_found", "permission", "collision", "other"} {
		StagingFailures.WithLabelValues(reason)
	}

	for _, result := range []string{"hit", "miss", "error"} {
		MetadataCacheLookups.WithLabelValues(result)
	}

	for _, op := range []string{"open", "open_dir", "mkdir"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}

	for _, status := range []string{"success", "error"} {
		UploadsTotal.WithLabelValues(status)
	}
}

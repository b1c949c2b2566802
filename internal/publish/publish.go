package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dyphal/internal/filesystem"
	"dyphal/internal/logging"
	"dyphal/internal/mediatypes"
	"dyphal/internal/metrics"
	"dyphal/internal/tasks"
)

var log = logging.Component("publish")

// ErrNothingToPublish is returned when the album directory holds no files.
var ErrNothingToPublish = errors.New("nothing to publish")

// Uploader is the part of the S3 API a Publisher needs. *s3.Client
// implements it.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Reporter receives the aggregated failure message of a publish batch.
type Reporter interface {
	Error(message string)
}

// UploadError records a file that could not be stored.
type UploadError struct {
	Path string
	Key  string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s to %s: %v", e.Path, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Publisher uploads album directories.
type Publisher struct {
	client   Uploader
	opts     Options
	orch     *tasks.Orchestrator
	reporter Reporter
}

// New returns a Publisher that schedules its uploads on orch.
func New(client Uploader, opts Options, orch *tasks.Orchestrator, reporter Reporter) *Publisher {
	return &Publisher{client: client, opts: opts, orch: orch, reporter: reporter}
}

// Publish uploads every regular file below dir. The returned task is the
// batch barrier; it finishes once every upload has finished and any
// failures have been reported.
func (p *Publisher) Publish(dir string) (*tasks.Task, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNothingToPublish, dir)
	}

	b := p.orch.Begin("publish", len(files))
	for _, rel := range files {
		local := filepath.Join(dir, filepath.FromSlash(rel))
		key := p.opts.Key(rel)
		b.Submit("upload", local, nil, func(ctx context.Context) error {
			return p.upload(ctx, local, key)
		})
	}

	log.Info("publishing %d files from %s to s3://%s/%s", len(files), dir, p.opts.Bucket, p.opts.Prefix)
	return b.Start(func(results []tasks.TaskResult) {
		var messages []string
		for _, r := range tasks.Failures(results) {
			log.Error("%v", r.Err)
			messages = append(messages, "Error uploading "+r.Label)
		}
		if msg := tasks.Aggregate("while publishing the album", messages); msg != "" && p.reporter != nil {
			p.reporter.Error(msg)
		}
	}), nil
}

func (p *Publisher) upload(ctx context.Context, local, key string) error {
	f, err := filesystem.OpenWithRetry(local, filesystem.DefaultRetryConfig())
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return &UploadError{Path: local, Key: key, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Debug("failed to close %s: %v", local, closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return &UploadError{Path: local, Key: key, Err: err}
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.opts.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(mediatypes.GetMimeType(mediatypes.Ext(local))),
	})
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return &UploadError{Path: local, Key: key, Err: err}
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadBytes.Add(float64(info.Size()))
	log.Debug("uploaded %s as %s", local, key)
	return nil
}

// listFiles returns the slash-separated paths of the regular files below
// dir in lexical order.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return files, nil
}

package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dyphal/internal/tasks"
)

type object struct {
	contentType string
	body        string
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]object
	fail    map[string]bool
}

func newFakeUploader(failKeys ...string) *fakeUploader {
	u := &fakeUploader{objects: make(map[string]object), fail: make(map[string]bool)}
	for _, k := range failKeys {
		u.fail[k] = true
	}
	return u
}

func (u *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if u.fail[key] {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if aws.ToInt64(in.ContentLength) != int64(len(body)) {
		return nil, errors.New("content length mismatch")
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = object{contentType: aws.ToString(in.ContentType), body: string(body)}
	return &s3.PutObjectOutput{}, nil
}

type recordingReporter struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingReporter) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func writeAlbum(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html":                 "<html></html>",
		"trip.json":                  `{"albumVersion":2}`,
		"photos/a.jpg":               "jpeg-a",
		"thumbnails/a.thumbnail.jpg": "thumb-a",
		"metadata/a.jpg.json":        `{"photo":"a.jpg"}`,
		"common.css":                 "body{}",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestPublish_UploadsEveryFile(t *testing.T) {
	dir := writeAlbum(t)
	orch := tasks.New(context.Background(), 3, nil)
	defer orch.Close()

	uploader := newFakeUploader()
	reporter := &recordingReporter{}
	opts, err := OptionsFrom(map[string]any{"bucket": "albums", "prefix": "/2024/trip/", "region": "eu-west-1"})
	require.NoError(t, err)

	barrier, err := New(uploader, opts, orch, reporter).Publish(dir)
	require.NoError(t, err)
	assert.Equal(t, tasks.Succeeded, barrier.Wait().Outcome)

	var keys []string
	for k := range uploader.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"2024/trip/common.css",
		"2024/trip/index.html",
		"2024/trip/metadata/a.jpg.json",
		"2024/trip/photos/a.jpg",
		"2024/trip/thumbnails/a.thumbnail.jpg",
		"2024/trip/trip.json",
	}, keys)

	assert.Equal(t, "image/jpeg", uploader.objects["2024/trip/photos/a.jpg"].contentType)
	assert.Equal(t, "text/html; charset=utf-8", uploader.objects["2024/trip/index.html"].contentType)
	assert.Equal(t, "application/json", uploader.objects["2024/trip/trip.json"].contentType)
	assert.Equal(t, "jpeg-a", uploader.objects["2024/trip/photos/a.jpg"].body)
	assert.Empty(t, reporter.messages)

	assert.False(t, orch.Busy())
}

func TestPublish_ReportsFailures(t *testing.T) {
	dir := writeAlbum(t)
	orch := tasks.New(context.Background(), 2, nil)
	defer orch.Close()

	uploader := newFakeUploader("photos/a.jpg", "index.html")
	reporter := &recordingReporter{}

	barrier, err := New(uploader, Options{Bucket: "albums", Region: "us-east-1"}, orch, reporter).Publish(dir)
	require.NoError(t, err)
	barrier.Wait()

	require.Len(t, reporter.messages, 1)
	want := "2 errors were encountered while publishing the album:\n" +
		"Error uploading " + filepath.Join(dir, "index.html") + "\n" +
		"Error uploading " + filepath.Join(dir, "photos", "a.jpg")
	assert.Equal(t, want, reporter.messages[0])
	assert.Len(t, uploader.objects, 4)
}

func TestPublish_EmptyDirectory(t *testing.T) {
	orch := tasks.New(context.Background(), 1, nil)
	defer orch.Close()

	_, err := New(newFakeUploader(), Options{Bucket: "b", Region: "r"}, orch, nil).Publish(t.TempDir())
	assert.ErrorIs(t, err, ErrNothingToPublish)
	assert.False(t, orch.Busy())
}

func TestPublish_MissingDirectory(t *testing.T) {
	orch := tasks.New(context.Background(), 1, nil)
	defer orch.Close()

	_, err := New(newFakeUploader(), Options{Bucket: "b", Region: "r"}, orch, nil).
		Publish(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUploadErrorUnwraps(t *testing.T) {
	dir := t.TempDir()
	p := New(newFakeUploader(), Options{Bucket: "b"}, nil, nil)

	err := p.upload(context.Background(), filepath.Join(dir, "gone.jpg"), "gone.jpg")

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "gone.jpg", uploadErr.Key)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptions(t *testing.T) {
	type publishSection struct {
		Bucket     string `mapstructure:"bucket"`
		Region     string `mapstructure:"region"`
		Endpoint   string `mapstructure:"endpoint"`
		MaxRetries int    `mapstructure:"maxRetries"`
	}

	opts, err := OptionsFrom(publishSection{Bucket: "albums", Region: "us-east-1", MaxRetries: 5})
	require.NoError(t, err)
	assert.Equal(t, Options{Bucket: "albums", Region: "us-east-1", MaxRetries: 5}, opts)
	assert.NoError(t, opts.Validate())

	assert.ErrorIs(t, Options{Region: "r"}.Validate(), ErrNoBucket)
	assert.ErrorIs(t, Options{Bucket: "b"}.Validate(), ErrNoRegion)

	assert.Equal(t, "index.html", opts.Key("index.html"))
	assert.Equal(t, "https://albums.s3.us-east-1.amazonaws.com/index.html", opts.URL("index.html"))

	opts.Prefix = "my trips"
	opts.Endpoint = "http://localhost:9000/"
	assert.Equal(t, "my trips/index.html", opts.Key("index.html"))
	assert.Equal(t, "http://localhost:9000/albums/my%20trips/index.html", opts.URL("index.html"))
	assert.True(t, strings.HasPrefix(opts.URL("a b.jpg"), "http://localhost:9000/albums/"))
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), Options{Region: "us-east-1"})
	assert.ErrorIs(t, err, ErrNoBucket)
}

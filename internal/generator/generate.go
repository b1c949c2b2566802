package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dyphal/internal/album"
	"dyphal/internal/dirhandle"
	"dyphal/internal/exttool"
	"dyphal/internal/filesystem"
	"dyphal/internal/photo"
	"dyphal/internal/tasks"
)

// ErrNoAlbumFile is returned by Generate when no album file is named.
var ErrNoAlbumFile = errors.New("no album file given")

// outputBatch is a batch that writes through a set of directory handles.
type outputBatch struct {
	s    *Session
	b    *tasks.Batch
	dirs *dirhandle.Registry
}

func (s *Session) beginOutput(kind string, steps int) *outputBatch {
	return &outputBatch{s: s, b: s.orch.Begin(kind, steps), dirs: dirhandle.NewRegistry()}
}

// mkdir creates path, opens it and registers it under role.
func (o *outputBatch) mkdir(role dirhandle.Role, path string) *tasks.Task {
	return o.b.Submit("create_directory", path, nil, func(context.Context) error {
		if err := filesystem.EnsureDirectory(path, filesystem.DefaultRetryConfig()); err != nil {
			return err
		}
		return o.dirs.Open(role, path)
	})
}

// write runs fn with the registered path of role once dir has finished.
func (o *outputBatch) write(kind, label string, role dirhandle.Role, dir *tasks.Task, fn func(ctx context.Context, dir string) error) *tasks.Task {
	return o.b.Submit(kind, label, dir, func(ctx context.Context) error {
		path, err := o.dirs.Path(role)
		if err != nil {
			return err
		}
		return fn(ctx, path)
	})
}

// finish starts the barrier. It closes every directory handle, runs
// cleanup, and reports failures as one message about activity.
func (o *outputBatch) finish(activity string, cleanup func(results []tasks.TaskResult)) *tasks.Task {
	return o.b.Start(func(results []tasks.TaskResult) {
		o.dirs.CloseAll()
		if cleanup != nil {
			cleanup(results)
		}

		var messages []string
		for _, r := range tasks.Failures(results) {
			messages = append(messages, outputMessage(r))
		}
		if msg := tasks.Aggregate(activity, messages); msg != "" {
			o.s.observer.Error(msg)
		}
	})
}

func outputMessage(r tasks.TaskResult) string {
	var (
		procErr *exttool.ProcessError
		saveErr *album.SaveError
	)
	switch {
	case errors.As(r.Err, &procErr), errors.Is(r.Err, exttool.ErrTimeout):
		return "Error resizing " + r.Label
	case errors.As(r.Err, &saveErr):
		return saveErr.Error()
	default:
		log.Error("%s %s: %v", r.Kind, r.Label, r.Err)
		return r.Err.Error()
	}
}

// Generate writes the album file, its viewer file, and every photo's
// descriptor, resized copy and thumbnail into the directory holding
// albumFile. The returned task is the batch barrier.
func (s *Session) Generate(albumFile string) (*tasks.Task, error) {
	if albumFile == "" {
		return nil, ErrNoAlbumFile
	}
	albumFile, err := filepath.Abs(albumFile)
	if err != nil {
		return nil, err
	}

	photos := s.Photos()
	info := s.Info()
	data := &album.Album{
		Title:           info.Title,
		Description:     info.Description,
		Footer:          info.Footer,
		MetadataDir:     photo.QuotePath(photo.MetadataDir + "/"),
		CaptionFields:   info.CaptionFields,
		PropertyFields:  info.PropertyFields,
		PhotoResolution: info.PhotoResolution,
	}
	for _, p := range photos {
		e := p.AlbumEntry()
		data.Photos = append(data.Photos, album.Photo{
			Name:        e.Name,
			Thumbnail:   e.Thumbnail,
			Orientation: e.Orientation,
			Path:        e.Path,
		})
	}

	albumDir := filepath.Dir(albumFile)
	o := s.beginOutput("generate", 3*len(photos)+5)

	albumTask := o.mkdir(dirhandle.Album, albumDir)
	metadataTask := o.mkdir(dirhandle.Metadata, filepath.Join(albumDir, photo.MetadataDir))
	photosTask := o.mkdir(dirhandle.Photos, filepath.Join(albumDir, photo.PhotoDir))
	thumbsTask := o.mkdir(dirhandle.Thumbnails, filepath.Join(albumDir, photo.ThumbnailDir))

	o.write("save_album", albumFile, dirhandle.Album, albumTask, func(_ context.Context, dir string) error {
		return album.Save(filepath.Join(dir, filepath.Base(albumFile)), data)
	})

	w, h := info.PhotoResolution[0], info.PhotoResolution[1]
	quality := s.opts.PhotoQuality
	type hold struct {
		task *tasks.Task
		p    *photo.Photo
	}
	var holds []hold
	// Each task holds its own reference to the photo until it finishes.
	submit := func(p *photo.Photo, kind string, role dirhandle.Role, dir *tasks.Task, fn func(ctx context.Context, dir string) error) {
		p.AddRef()
		t := o.write(kind, p.OriginalPath(), role, dir, func(ctx context.Context, dir string) error {
			defer p.Release()
			return fn(ctx, dir)
		})
		holds = append(holds, hold{t, p})
	}
	for _, p := range photos {
		p := p
		submit(p, "photo_json", dirhandle.Metadata, metadataTask, func(_ context.Context, dir string) error {
			return p.WriteDescriptor(dir, w, h, info.CaptionFields, info.PropertyFields)
		})
		submit(p, "resize", dirhandle.Photos, photosTask, func(ctx context.Context, dir string) error {
			return p.Resize(ctx, dir, w, h, quality)
		})
		submit(p, "thumbnail", dirhandle.Thumbnails, thumbsTask, func(ctx context.Context, dir string) error {
			return p.Thumbnail(ctx, dir, photo.ThumbWidth, photo.ThumbHeight, photo.ThumbQuality)
		})
	}

	s.mu.Lock()
	s.albumFile = albumFile
	s.mu.Unlock()
	log.Info("generating %s with %d photos", albumFile, len(photos))

	return o.finish("while generating the album", func([]tasks.TaskResult) {
		for _, h := range holds {
			// A cancelled task never ran its deferred release.
			if h.task.Wait().Outcome == tasks.Cancelled {
				h.p.Release()
			}
		}
		s.mu.Lock()
		s.dirty = false
		s.mu.Unlock()
	}), nil
}

// InstallTemplate copies the viewer template files into outDir.
func (s *Session) InstallTemplate(outDir string) *tasks.Task {
	o := s.beginOutput("install_template", len(TemplateFiles)+1)
	dirTask := o.mkdir(dirhandle.Album, outDir)
	for _, name := range TemplateFiles {
		name := name
		src := filepath.Join(s.opts.TemplateDir, name)
		o.write("copy_template", name, dirhandle.Album, dirTask, func(_ context.Context, dir string) error {
			return copyFile(src, filepath.Join(dir, name))
		})
	}
	return o.finish("installing the template", nil)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}

package generator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"dyphal/internal/exttool"
	"dyphal/internal/metadata"
	"dyphal/internal/photo"
	"dyphal/internal/safefile"
	"dyphal/internal/tasks"
)

// AddPhotos loads sources in the background and appends them to the album
// in the order given. Photos whose names collide with a photo already in
// the album go through the Renamer once the batch has finished. The
// returned task is the batch barrier, or nil when there is nothing to add.
func (s *Session) AddPhotos(sources []Source) *tasks.Task {
	return s.addPhotos(sources, true)
}

func (s *Session) addPhotos(sources []Source, dirtying bool) *tasks.Task {
	if len(sources) == 0 {
		return nil
	}

	b := s.orch.Begin("add_photos", len(sources))
	opts := s.photoOptions()
	var prev *tasks.Task
	for _, src := range sources {
		src, before := src, prev
		prev = b.Submit("add_photo", src.Path, nil, func(ctx context.Context) error {
			p, err := photo.New(ctx, src.Path, src.Name, opts)
			if err != nil {
				return err
			}
			p.AddRef()
			// Load in parallel, append in order.
			if before != nil {
				before.Wait()
			}
			s.appendPhoto(p, dirtying)
			return nil
		})
	}
	return b.Start(func(results []tasks.TaskResult) {
		s.addPhotosComplete(results, dirtying)
	})
}

func (s *Session) addPhotosComplete(results []tasks.TaskResult, dirtying bool) {
	var messages, collisions []string
	cancelled := false
	for _, r := range results {
		switch r.Outcome {
		case tasks.Cancelled:
			cancelled = true
			continue
		case tasks.Succeeded:
			continue
		}
		if errors.Is(r.Err, safefile.ErrNameCollision) {
			collisions = append(collisions, r.Label)
			continue
		}
		messages = append(messages, s.loadMessage(r))
	}
	if msg := tasks.Aggregate("loading files", messages); msg != "" {
		s.observer.Error(msg)
	}

	if len(collisions) == 0 {
		return
	}
	if cancelled {
		log.Info("skipping %d name collisions in a cancelled batch", len(collisions))
		return
	}
	s.rename(collisions, dirtying)
}

// loadMessage turns a failed add_photo result into its user-facing line.
func (s *Session) loadMessage(r tasks.TaskResult) string {
	var procErr *exttool.ProcessError
	switch {
	case errors.Is(r.Err, metadata.ErrExtractorMissing):
		return fmt.Sprintf("Error executing '%s'.  Is it installed?", s.opts.Extractor.Name())
	case errors.Is(r.Err, os.ErrNotExist), errors.Is(r.Err, os.ErrPermission):
		return "Error opening photo " + r.Label
	case errors.Is(r.Err, metadata.ErrExtractorTimeout), errors.As(r.Err, &procErr):
		return "Error reading metadata from photo " + r.Label
	default:
		log.Error("loading %s: %v", r.Label, r.Err)
		return r.Err.Error()
	}
}

// rename asks the Renamer about every collision and loads the renamed
// photos as a new batch. It runs inside the add barrier, so the session
// stays busy until the new batch has begun.
func (s *Session) rename(paths []string, dirtying bool) {
	var renamed []Source
	for _, path := range paths {
		if name, ok := s.opts.Renamer.Rename(path); ok && name != "" {
			renamed = append(renamed, Source{Path: path, Name: name})
		}
	}
	s.addPhotos(renamed, dirtying)
}

// RemovePhotos takes the named photos out of the album at once and
// releases them in the background. Unknown names are ignored.
func (s *Session) RemovePhotos(names []string) *tasks.Task {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	s.mu.Lock()
	var removed, kept []*photo.Photo
	for _, p := range s.photos {
		if wanted[p.Name()] {
			removed = append(removed, p)
		} else {
			kept = append(kept, p)
		}
	}
	s.photos = kept
	if len(removed) > 0 {
		s.dirty = true
	}
	s.mu.Unlock()

	return s.releasePhotos(removed)
}

func (s *Session) releasePhotos(photos []*photo.Photo) *tasks.Task {
	if len(photos) == 0 {
		return nil
	}
	b := s.orch.Begin("remove_photos", len(photos))
	for _, p := range photos {
		p := p
		b.Submit("remove_photo", p.Name(), nil, func(context.Context) error {
			p.Release()
			return nil
		})
	}
	return b.Start(func(results []tasks.TaskResult) {
		// A cancelled release must still happen.
		for i, r := range results {
			if r.Outcome == tasks.Cancelled {
				photos[i].Release()
			}
		}
	})
}

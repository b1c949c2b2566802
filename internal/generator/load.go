package generator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"dyphal/internal/album"
	"dyphal/internal/photo"
	"dyphal/internal/tasks"
)

// CloseAlbum removes every photo and clears the album text. With defaults
// set, the footer, field selections and resolution are taken from
// defaults instead of being cleared.
func (s *Session) CloseAlbum(defaults *Info) *tasks.Task {
	s.mu.Lock()
	photos := s.photos
	s.photos = nil
	info := Info{PhotoResolution: DefaultResolution}
	if defaults != nil {
		info.Footer = defaults.Footer
		info.CaptionFields = defaults.CaptionFields
		info.PropertyFields = defaults.PropertyFields
		if defaults.PhotoResolution[0] > 0 && defaults.PhotoResolution[1] > 0 {
			info.PhotoResolution = defaults.PhotoResolution
		}
	}
	s.info = info
	s.albumFile = ""
	s.dirty = false
	s.mu.Unlock()

	return s.releasePhotos(photos)
}

// LoadAlbum replaces the current album with the one saved in file. The
// file is read in the background; its photos are then loaded as an add
// batch that begins before the load batch finishes.
func (s *Session) LoadAlbum(file string) *tasks.Task {
	closing := s.CloseAlbum(nil)

	b := s.orch.Begin("load_album", 1)
	b.Submit("load_album", file, nil, func(context.Context) error {
		// The old photos must be unstaged before their names are reused.
		if closing != nil {
			closing.Wait()
		}
		a, err := album.Load(file)
		if err != nil {
			return err
		}
		s.setAlbum(file, a)
		return nil
	})
	return b.Start(func(results []tasks.TaskResult) {
		for _, r := range tasks.Failures(results) {
			s.observer.Error(loadAlbumMessage(file, r.Err))
		}
	})
}

func loadAlbumMessage(file string, err error) string {
	base := filepath.Base(file)
	var perr *album.ParseError
	if errors.As(err, &perr) {
		return fmt.Sprintf("Error loading an album from '%s': %s", base, perr.Msg)
	}
	return fmt.Sprintf("Error reading '%s': %s.", base, err)
}

func (s *Session) setAlbum(file string, a *album.Album) {
	var sources []Source
	for _, p := range a.Photos {
		path := photo.UnquotePath(p.Path)
		sources = append(sources, Source{
			Path: photo.ExpandHome(path, s.opts.HomeDir),
			Name: filepath.Base(path),
		})
	}

	s.mu.Lock()
	s.info = Info{
		Title:           a.Title,
		Description:     a.Description,
		Footer:          a.Footer,
		CaptionFields:   a.CaptionFields,
		PropertyFields:  a.PropertyFields,
		PhotoResolution: a.PhotoResolution,
	}
	s.albumFile = file
	s.dirty = false
	s.mu.Unlock()

	log.Info("loaded %s: %q with %d photos", file, a.Title, len(sources))
	s.addPhotos(sources, false)
}

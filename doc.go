// Package main provides the entry point for the dyphal command.
//
// Dyphal generates static web photo albums. The generator reads photos,
// extracts their captions and properties, writes resized copies and
// thumbnails, and saves the album as JSON next to the viewer template.
//
// # Commands
//
//   - generate: build an album from photos, directories or gThumb catalogs
//   - open: list, edit and regenerate an existing album
//   - info: print the metadata extracted from photos
//   - install-template: copy the viewer files into an album directory
//   - import-catalog: list the photos of a gThumb 3 catalog
//   - serve: preview an album directory over HTTP
//   - publish: upload an album directory to S3-compatible storage
//   - config: show, locate or validate the configuration
//   - check: report whether exiftool and ImageMagick are installed
//
// # Configuration
//
// Settings are read from $XDG_CONFIG_HOME/DyphalGenerator.conf, a JSON
// file the generator updates with the directories and album settings it
// last used. Every key can be overridden by a DYPHAL_ environment
// variable, for example DYPHAL_THREADS or DYPHAL_PUBLISH_BUCKET.
//
// # External Tools
//
// The default metadata extractor runs exiftool and the default converter
// runs ImageMagick's convert. The pure Go "exif" extractor and the
// "imaging" and "vips" converters avoid those dependencies.
//
// # Build
//
// Version information is set at link time:
//
//	go build -ldflags "-X dyphal/internal/startup.Version=1.0.0" -o dyphal .
package main

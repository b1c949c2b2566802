// Package config loads and saves the persistent settings of the album
// generator.
//
// Settings are read from DyphalGenerator.conf, a JSON file kept in
// $XDG_CONFIG_HOME (or ~/.config), and may be overridden by DYPHAL_*
// environment variables:
//
//	DYPHAL_THREADS=4
//	DYPHAL_PUBLISH_BUCKET=my-albums
//	DYPHAL_UIDATA_PHOTORESOLUTION=1024x768
//
// A missing or unreadable file is never fatal. Load falls back to the
// defaults and logs a warning, and individual out-of-range values are
// reset to their defaults rather than rejecting the whole file.
package config

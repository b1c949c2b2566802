// Package mediatypes holds the file type tables shared by the generator:
// which extensions are photos, catalogs, albums and template assets, their
// MIME types, and the album to web file name convention.
//
// It has no dependencies beyond the standard library so any package can
// import it without creating a cycle.
//
//	if mediatypes.IsImage(path) {
//	    // enrol the photo
//	}
//
//	mediatypes.WebFileName("trip.dyphal") // "trip.json"
package mediatypes

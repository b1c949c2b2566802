// Package generator holds an album editing session: the photos enrolled in
// the album, its text and field selections, and the background batches
// that load photos, generate album output, install the viewer template and
// reload saved albums.
package generator

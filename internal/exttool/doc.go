// Package exttool runs the external programs the generator depends on
// (exiftool and ImageMagick) with a bounded timeout, classifying their
// failures into missing, timed out and exited-unsuccessfully.
package exttool

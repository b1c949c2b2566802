/*
Package photo models one source image enrolled in an album.

New stages the file with safefile, runs the metadata extractor on the
staged path, and keeps two maps:

  - captions: Date, Location and Description, each from the first tag
    present in a fixed preference list
  - properties: values from a fixed allow-list of tags, each with an
    optional default and an optional text transform

A Photo is reference counted (see package refcount). The album list holds
one reference and each generation task holds another, so the staged file
stays open until the last user finishes.

Rescale, Descriptor, Resize and Thumbnail produce the per-photo outputs of
an album. Paths written into album files are percent-encoded with
QuotePath.
*/
package photo

/*
Package metadata reads the embedded metadata of photos.

An Extractor turns a staged photo path into a Record of namespaced tags
("EXIF:DateTimeOriginal", "Composite:Aperture", "File:ImageWidth", ...):

  - Exiftool runs `exiftool -charset iptc=UTF8 -json -a -G -All` and keeps
    the first record printed. Numbers are decoded as json.Number so their
    text survives unchanged.
  - Exif decodes EXIF in-process with goexif. It knows far fewer tags and
    is meant for machines without exiftool.
  - Cache wraps either one with a SQLite table keyed by the blake2b digest
    of the photo content.

Failures are reported with ErrExtractorMissing, ErrExtractorTimeout,
ErrMalformedOutput or an *exttool.ProcessError.
*/
package metadata

/*
Package convert produces resized photos and thumbnails.

Three Converter implementations share one contract:

  - ImageMagick runs `convert` as an external process with a bounded
    timeout. It is the default and matches the output of earlier releases.
  - Imaging decodes and encodes in-process with disintegration/imaging.
  - Vips uses libvips through govips; InitVips must run first.

Resize shrinks to fit and never enlarges. Thumbnail fills the box and crops
around the centre so every thumbnail has the same size.
*/
package convert

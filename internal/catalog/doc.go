// Package catalog reads gThumb 3 catalog files.
//
// A catalog is a small XML document listing photos by file URI:
//
//	<catalog version="1.0">
//	  <files>
//	    <file uri="file:///home/me/Pictures/IMG_0001.jpg"/>
//	  </files>
//	</catalog>
//
// Files appear in arbitrary order; gThumb displays them sorted by name, so
// Load returns the local paths sorted.
package catalog

package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType classifies an input or output file of the generator.
type FileType string

const (
	// FileTypeImage is a photo that can be added to an album.
	FileTypeImage FileType = "image"
	// FileTypeCatalog is a gThumb 3 catalog listing photos.
	FileTypeCatalog FileType = "catalog"
	// FileTypeAlbum is a savable album file.
	FileTypeAlbum FileType = "album"
	// FileTypeAsset is a file of the album viewer template.
	FileTypeAsset FileType = "asset"
	// FileTypeOther is anything else.
	FileTypeOther FileType = "other"
)

// AlbumExtension is the conventional extension of a savable album file.
// The web copy replaces it with WebExtension.
const (
	AlbumExtension = ".dyphal"
	WebExtension   = ".json"
)

// ImageExtensions lists the photo formats the converters accept.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// AssetExtensions lists the file types shipped in the viewer template.
var AssetExtensions = map[string]bool{
	".html": true,
	".css":  true,
	".js":   true,
	".png":  true,
}

// formatNames maps extensions to the file type names exiftool reports.
var formatNames = map[string]string{
	".jpg":  "JPEG",
	".jpeg": "JPEG",
	".png":  "PNG",
	".gif":  "GIF",
	".bmp":  "BMP",
	".webp": "WEBP",
	".tiff": "TIFF",
	".tif":  "TIFF",
	".heic": "HEIC",
	".heif": "HEIF",
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":     "image/jpeg",
	".jpeg":    "image/jpeg",
	".png":     "image/png",
	".gif":     "image/gif",
	".bmp":     "image/bmp",
	".webp":    "image/webp",
	".tiff":    "image/tiff",
	".tif":     "image/tiff",
	".heic":    "image/heic",
	".heif":    "image/heif",
	".html":    "text/html; charset=utf-8",
	".css":     "text/css; charset=utf-8",
	".js":      "text/javascript; charset=utf-8",
	".json":    "application/json",
	".dyphal":  "application/json",
	".catalog": "application/xml",
}

// Ext returns the lowercased extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// GetFileType returns the FileType for a lowercase extension with its
// leading dot. Images take precedence over template assets.
func GetFileType(ext string) FileType {
	switch {
	case ImageExtensions[ext]:
		return FileTypeImage
	case ext == ".catalog":
		return FileTypeCatalog
	case ext == AlbumExtension:
		return FileTypeAlbum
	case AssetExtensions[ext]:
		return FileTypeAsset
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a lowercase extension, or
// "application/octet-stream" when it is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// FormatName returns the upper-case format name for an extension, such as
// "JPEG" for ".jpg", or "" when unknown.
func FormatName(ext string) string {
	return formatNames[ext]
}

// IsImage reports whether path names a supported photo.
func IsImage(path string) bool {
	return ImageExtensions[Ext(path)]
}

// WebFileName derives the viewer file name from an album file name by
// replacing a trailing ".dyphal" with ".json", or appending ".json".
func WebFileName(albumFile string) string {
	if strings.HasSuffix(albumFile, AlbumExtension) {
		return strings.TrimSuffix(albumFile, AlbumExtension) + WebExtension
	}
	return albumFile + WebExtension
}

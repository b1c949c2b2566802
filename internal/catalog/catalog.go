package catalog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dyphal/internal/logging"
)

var log = logging.Component("catalog")

// SupportedVersion is the only catalog version Load accepts.
const SupportedVersion = "1.0"

// Extension is the file extension of gThumb 3 catalogs.
const Extension = ".catalog"

// ErrUnsupportedVersion is returned for a catalog of any other version.
var ErrUnsupportedVersion = errors.New("unsupported gThumb catalog version")

// Catalog is a parsed catalog file.
type Catalog struct {
	Path  string
	Files []string // local paths, sorted
	// Skipped holds URIs that do not name local files.
	Skipped []string
}

// Load reads the catalog at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	c.Path = path
	log.Debug("read %d files from %s", len(c.Files), path)
	return c, nil
}

// Parse reads a catalog document. Every file element is collected,
// wherever it appears under the root.
func Parse(r io.Reader) (*Catalog, error) {
	dec := xml.NewDecoder(r)
	c := &Catalog{}
	root := true
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid catalog: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if root {
			root = false
			if attr(start, "version") != SupportedVersion {
				return nil, ErrUnsupportedVersion
			}
			continue
		}
		if start.Name.Local != "file" {
			continue
		}
		uri := attr(start, "uri")
		if path, ok := LocalPath(uri); ok {
			c.Files = append(c.Files, path)
		} else {
			log.Warn("skipping %q: not a local file", uri)
			c.Skipped = append(c.Skipped, uri)
		}
	}
	if root {
		return nil, errors.New("invalid catalog: empty document")
	}
	sort.Strings(c.Files)
	return c, nil
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// LocalPath converts a percent-encoded file URI to a local path.
func LocalPath(uri string) (string, bool) {
	unescaped, err := url.PathUnescape(uri)
	if err != nil {
		unescaped = uri
	}
	rest, ok := strings.CutPrefix(unescaped, "file://")
	if !ok {
		return "", false
	}
	// file://host/path; only the local host is meaningful.
	if !strings.HasPrefix(rest, "/") {
		host, path, found := strings.Cut(rest, "/")
		if !found || host != "localhost" {
			return "", false
		}
		rest = "/" + path
	}
	return filepath.Clean(rest), true
}

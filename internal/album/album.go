package album

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"dyphal/internal/logging"
	"dyphal/internal/mediatypes"
)

var log = logging.Component("album")

// Format versions.
const (
	Version1       = 1
	Version2       = 2
	CurrentVersion = Version2
)

// Orientation values of a photo record.
const (
	Horizontal = "horizontal"
	Vertical   = "vertical"
)

// ParseError reports a document that is not a valid album. The message is
// meant for the user.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// WebFileMessage is the ParseError text for a viewer file opened in place
// of the album file it was generated from.
const WebFileMessage = "The selected file is a web JSON file, not a Dyphal save file."

// SaveError reports a failure writing one of the two album files.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("Error writing to %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Photo is one photo record. Which fields are present depends on the file:
// album files written by this version carry only Path; viewer files carry
// Name, Thumbnail and Orientation.
type Photo struct {
	Name        string
	Thumbnail   string
	Orientation string
	Path        string
}

// Album is the content of an album file.
type Album struct {
	Version         int
	Title           string
	Description     string
	Footer          string
	MetadataDir     string
	Photos          []Photo
	CaptionFields   []string
	PropertyFields  []string
	PhotoResolution [2]int
}

// Load reads and validates an album file. I/O failures are returned as
// they are; anything wrong with the content is a *ParseError.
func Load(path string) (*Album, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Parse(data)
	if err != nil {
		log.Debug("rejected %s: %v", path, err)
		return nil, err
	}
	return a, nil
}

// Parse validates an album document against the rules of its declared
// version.
func Parse(data []byte) (*Album, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, &ParseError{Msg: "Invalid file format"}
	}
	if dec.More() {
		return nil, &ParseError{Msg: "Invalid file format"}
	}
	doc, ok := root.(map[string]any)
	if !ok {
		return nil, &ParseError{Msg: "Invalid file format"}
	}

	version, ok := intValue(doc["albumVersion"])
	if !ok {
		return nil, &ParseError{Msg: "Required field 'albumVersion' is missing or has an invalid value"}
	}

	switch version {
	case Version1:
		if err := albumV1.verify(doc); err != nil {
			return nil, err
		}
	case Version2:
		if err := albumV2.verify(doc); err != nil {
			if webV2.verify(doc) == nil {
				return nil, &ParseError{Msg: WebFileMessage}
			}
			return nil, err
		}
	default:
		return nil, parseErrorf("Album version '%d' is not supported by this version of Dyphal", version)
	}
	return decode(doc, int(version)), nil
}

// decode copies a verified document into an Album.
func decode(doc map[string]any, version int) *Album {
	a := &Album{Version: version}
	a.Title, _ = doc["title"].(string)
	a.Description, _ = doc["description"].(string)
	a.Footer, _ = doc["footer"].(string)
	a.MetadataDir, _ = doc["metadataDir"].(string)
	a.CaptionFields = stringList(doc["captionFields"])
	a.PropertyFields = stringList(doc["propertyFields"])
	if res, ok := doc["photoResolution"].([]any); ok && len(res) == 2 {
		w, _ := intValue(res[0])
		h, _ := intValue(res[1])
		a.PhotoResolution = [2]int{int(w), int(h)}
	}
	photos, _ := doc["photos"].([]any)
	for _, p := range photos {
		rec := p.(map[string]any)
		var photo Photo
		photo.Name, _ = rec["name"].(string)
		photo.Thumbnail, _ = rec["thumbnail"].(string)
		photo.Orientation, _ = rec["orientation"].(string)
		photo.Path, _ = rec["path"].(string)
		a.Photos = append(a.Photos, photo)
	}
	return a
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, _ := e.(string)
		out = append(out, s)
	}
	return out
}

// intValue accepts JSON integers only: no floats, no booleans, no strings.
func intValue(v any) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

// WebFileName returns the viewer file written next to an album file.
func WebFileName(albumFile string) string {
	return mediatypes.WebFileName(albumFile)
}

package photo

import (
	"fmt"
	"regexp"
	"time"

	"dyphal/internal/metadata"
)

// PropertyError reports a metadata value that could not be interpreted.
type PropertyError struct {
	Property string
	Value    string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("Property '%s' had an unexpected value: %s", e.Property, e.Value)
}

// Caption kinds.
const (
	CaptionDate        = "Date"
	CaptionLocation    = "Location"
	CaptionDescription = "Description"
)

// Properties set outside the table.
const (
	PropertyFileName = "File name"
	PropertyTimeZone = "Time zone"
)

type property struct {
	tag       string
	name      string
	def       string
	transform func(string) (string, error)
}

func suffix(s string) func(string) (string, error) {
	return func(v string) (string, error) { return v + s, nil }
}

func prefix(s string) func(string) (string, error) {
	return func(v string) (string, error) { return s + v, nil }
}

// recognizedProperties is the allow-list of tags copied into a photo's
// properties, in order. exiftool reports far more than anyone wants to
// pick through.
var recognizedProperties = []property{
	{tag: "Composite:Aperture", name: "Aperture", transform: prefix("f/")},
	{tag: "Composite:DigitalZoom", name: "Digital zoom", def: "None"},
	{tag: "Composite:DriveMode", name: "Drive mode", def: "Normal"},
	{tag: "Composite:FlashType", name: "Flash type", def: "None"},
	{tag: "Composite:FOV", name: "Field of view", transform: suffix("rees")},
	{tag: "Composite:FocalLength35efl", name: "Focal length"},
	{tag: "Composite:HyperfocalDistance", name: "Hyperfocal distance"},
	{tag: "Composite:ImageSize", name: "Image dimensions", transform: suffix(" pixels")},
	{tag: "Composite:Lens35efl", name: "Lens"},
	{tag: "Composite:LensID", name: "Lens ID"},
	{tag: "Composite:LightValue", name: "Light value"},
	{tag: "Composite:ScaleFactor35efl", name: "Scale factor"},
	{tag: "Composite:ShootingMode", name: "Shooting mode"},
	{tag: "Composite:ShutterSpeed", name: "Exposure", transform: suffix(" sec.")},
	{tag: "EXIF:DateTimeOriginal", name: "Creation time", transform: exifTime},
	{tag: "EXIF:ExposureCompensation", name: "Exposure compensation"},
	{tag: "EXIF:ExposureMode", name: "Exposure mode"},
	{tag: "EXIF:Flash", name: "Flash"},
	{tag: "EXIF:FocalLength", name: "Focal length"},
	{tag: "EXIF:ISO", name: "ISO"},
	{tag: "EXIF:Make", name: "Camera make"},
	{tag: "EXIF:Model", name: "Camera model"},
	{tag: "EXIF:Orientation", name: "Orientation"},
	{tag: "File:FileSize", name: "File size"},
	{tag: "File:FileType", name: "File type"},
	{tag: "MakerNotes:MacroMode", name: "Macro mode"},
	{tag: "MakerNotes:Rotation", name: "Rotation", transform: suffix(" degrees")},
}

var (
	dateTags        = []string{"XMP:DateTimeOriginal", "Composite:DateTimeCreated", "EXIF:DateTimeOriginal"}
	locationTags    = []string{"XMP:Location", "IPTC:ContentLocationName"}
	descriptionTags = []string{"XMP:Description", "IPTC:Caption-Abstract", "EXIF:UserComment"}
)

// PropertyNames lists every property a photo can carry, in table order.
func PropertyNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range recognizedProperties {
		if !seen[p.name] {
			seen[p.name] = true
			names = append(names, p.name)
		}
	}
	return append(names, PropertyFileName, PropertyTimeZone)
}

// CaptionNames lists the caption kinds.
func CaptionNames() []string {
	return []string{CaptionDate, CaptionLocation, CaptionDescription}
}

const (
	exifLayout      = "2006:01:02 15:04:05"
	exifZonedLayout = "2006:01:02 15:04:05-07:00"
)

func exifTime(v string) (string, error) {
	t, err := time.Parse(exifLayout, v)
	if err != nil {
		return "", &PropertyError{Property: "EXIF time", Value: v}
	}
	return t.Format("2006-01-02 15:04:05Z"), nil
}

var (
	zonedTimestamp = regexp.MustCompile(`^[0-9]{4}:[0-9]{2}:[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2}[+-][0-9]{2}:[0-9]{2}$`)
	plainTimestamp = regexp.MustCompile(`^[0-9]{4}:[0-9]{2}:[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2}$`)
)

// displayTime formats an EXIF, IPTC or XMP timestamp for the Date caption
// and derives the Time zone property. A timestamp without a zone reports
// "UTC-00:00", the RFC 3339 spelling of an unknown offset.
func displayTime(v string) (string, string, error) {
	var (
		t      time.Time
		err    error
		zoned  bool
		layout string
	)
	switch {
	case zonedTimestamp.MatchString(v):
		layout, zoned = exifZonedLayout, true
	case plainTimestamp.MatchString(v):
		layout = exifLayout
	default:
		return "", "", &PropertyError{Property: "Display time", Value: v}
	}
	if t, err = time.Parse(layout, v); err != nil {
		return "", "", &PropertyError{Property: "Display time", Value: v}
	}

	zone := "UTC-00:00"
	if zoned {
		_, offset := t.Zone()
		zone = formatOffset(offset)
	}
	return t.Format("02 January 2006, 15:04"), zone, nil
}

func formatOffset(seconds int) string {
	if seconds == 0 {
		return "UTC"
	}
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// extractProperties applies the allow-list to a record.
func extractProperties(r metadata.Record) (map[string]string, error) {
	props := make(map[string]string)
	for _, p := range recognizedProperties {
		v, ok := r.String(p.tag)
		if !ok {
			if p.def != "" {
				props[p.name] = p.def
			}
			continue
		}
		if p.transform != nil {
			var err error
			if v, err = p.transform(v); err != nil {
				return nil, err
			}
		}
		props[p.name] = v
	}
	return props, nil
}

// extractCaptions fills the caption map from the first matching tag of
// each kind. The Date caption also sets the Time zone property.
func extractCaptions(r metadata.Record, props map[string]string) (map[string]string, error) {
	captions := make(map[string]string)

	if v, ok := first(r, dateTags); ok {
		display, zone, err := displayTime(v)
		if err != nil {
			return nil, err
		}
		captions[CaptionDate] = display
		props[PropertyTimeZone] = zone
	}
	if v, ok := first(r, locationTags); ok {
		captions[CaptionLocation] = v
	}
	if v, ok := first(r, descriptionTags); ok {
		captions[CaptionDescription] = v
	}
	return captions, nil
}

func first(r metadata.Record, tags []string) (string, bool) {
	for _, tag := range tags {
		if v, ok := r.String(tag); ok {
			return v, true
		}
	}
	return "", false
}

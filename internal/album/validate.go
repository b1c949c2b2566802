package album

// template lists the checks one file format requires. Checks run in field
// order, and the first failure is reported.
type template struct {
	strings          []string // present and a string
	nonEmptyStrings  []string // present, a string, not empty
	lists            []string // present and a list
	photoStrings     []string // per photo: present, a string, not empty
	photoOrientation []string // per photo: "horizontal" or "vertical"
	fieldLists       []string // lists whose elements are non-empty strings
	resolutions      []string // lists of exactly two positive integers
}

var albumV1 = template{
	strings:          []string{"title", "description", "footer"},
	nonEmptyStrings:  []string{"metadataDir"},
	lists:            []string{"photos", "captionFields", "propertyFields", "photoResolution"},
	photoStrings:     []string{"name", "thumbnail", "path"},
	photoOrientation: []string{"orientation"},
	fieldLists:       []string{"captionFields", "propertyFields"},
	resolutions:      []string{"photoResolution"},
}

var albumV2 = template{
	strings:      []string{"title", "description", "footer"},
	lists:        []string{"photos", "captionFields", "propertyFields", "photoResolution"},
	photoStrings: []string{"path"},
	fieldLists:   []string{"captionFields", "propertyFields"},
	resolutions:  []string{"photoResolution"},
}

var webV2 = template{
	strings:          []string{"title", "description", "footer"},
	nonEmptyStrings:  []string{"metadataDir"},
	lists:            []string{"photos"},
	photoStrings:     []string{"name", "thumbnail"},
	photoOrientation: []string{"orientation"},
}

func missing(key string) *ParseError {
	return parseErrorf("Required field '%s' is missing or has an invalid value", key)
}

func (t template) verify(doc map[string]any) error {
	for _, key := range t.strings {
		if _, ok := doc[key].(string); !ok {
			return missing(key)
		}
	}
	for _, key := range t.nonEmptyStrings {
		if s, ok := doc[key].(string); !ok || s == "" {
			return missing(key)
		}
	}
	for _, key := range t.lists {
		if _, ok := doc[key].([]any); !ok {
			return missing(key)
		}
	}

	photos, _ := doc["photos"].([]any)
	for i, p := range photos {
		rec, ok := p.(map[string]any)
		if !ok {
			return parseErrorf("Photo record %d has an invalid value", i)
		}
		for _, key := range t.photoStrings {
			if s, ok := rec[key].(string); !ok || s == "" {
				return parseErrorf("Required field '%s' in photo record %d is missing or has an invalid value", key, i)
			}
		}
		for _, key := range t.photoOrientation {
			if s, _ := rec[key].(string); s != Horizontal && s != Vertical {
				return parseErrorf("Required field '%s' in photo record %d is missing or has an invalid value", key, i)
			}
		}
	}

	for _, key := range t.fieldLists {
		list, _ := doc[key].([]any)
		for _, e := range list {
			if s, ok := e.(string); !ok || s == "" {
				return parseErrorf("Required field %s contains an invalid value", key)
			}
		}
	}

	for _, key := range t.resolutions {
		list, _ := doc[key].([]any)
		if len(list) != 2 {
			return parseErrorf("Required field '%s' has an invalid value", key)
		}
		for _, e := range list {
			if n, ok := intValue(e); !ok || n <= 0 {
				return parseErrorf("Required field '%s' has an invalid value", key)
			}
		}
	}
	return nil
}

package album

import (
	"bytes"
	"encoding/json"
	"io"
)

func decodeForTest(doc string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.UseNumber()
	var m map[string]any
	err := dec.Decode(&m)
	return m, err
}

func encodeForTest(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

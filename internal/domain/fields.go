package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// fields is a JSON object keyed by exact member name. encoding/json folds
// case when it fills structs, so wire objects are read through fields to
// see the same keys a JavaScript peer sees. A repeated key keeps its last
// value.
type fields map[string]json.RawMessage

func parseFields(data []byte) (fields, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// decode unmarshals the value stored under key into dst. Absent keys and
// null values leave dst untouched.
func (f fields) decode(key string, dst any) error {
	raw, ok := f[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

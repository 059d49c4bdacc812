package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
)

// FieldValue is a submitted scalar that may arrive either as a plain string
// or wrapped as a single-entry list of the form [{"value": "..."}], the shape
// multi-part form widgets produce. Decoding flattens both into the string.
type FieldValue string

// UnmarshalJSON accepts a JSON string, null, a {"value": ...} object, or a
// list whose first element carries a "value" key. A wrapper without a
// "value" key decodes to the empty string.
func (v *FieldValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FieldValue(s)
		return nil
	case '[':
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return fmt.Errorf("field value: %w", err)
		}
		*v = ""
		if len(items) == 0 {
			return nil
		}
		return v.fromWrapper(items[0])
	case '{':
		var item map[string]json.RawMessage
		if err := json.Unmarshal(b, &item); err != nil {
			return fmt.Errorf("field value: %w", err)
		}
		*v = ""
		return v.fromWrapper(item)
	default:
		// numbers and booleans are kept in their literal form
		*v = FieldValue(b)
		return nil
	}
}

func (v *FieldValue) fromWrapper(item map[string]json.RawMessage) error {
	raw, ok := item["value"]
	if !ok {
		return nil
	}
	var inner FieldValue
	if err := inner.UnmarshalJSON(raw); err != nil {
		return err
	}
	*v = inner
	return nil
}

// String returns the extracted scalar.
func (v FieldValue) String() string { return string(v) }

// FormValue extracts field name from a url-encoded form, preferring the plain
// key and falling back to the wrapped "name[0][value]" key.
func FormValue(form url.Values, name string) string {
	if vs, ok := form[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return form.Get(name + "[0][value]")
}

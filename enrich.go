package juxfix

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Metadata is an ordered mapping of property names to string values.
// Iteration order is insertion order, which is preserved all the way into
// the enriched document.
type Metadata []Property

// Set replaces the value of an existing entry in place, or appends a new
// entry at the end.
func (m *Metadata) Set(name, value string) {
	for i := range *m {
		if (*m)[i].Name == name {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Property{Name: name, Value: value})
}

// Get returns the value for name and whether it is present.
func (m Metadata) Get(name string) (string, bool) {
	for _, e := range m {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// MergeJSON overlays entries from a flat JSON object onto the mapping,
// preserving the object's key order. String, number, bool and null values
// are coerced to their canonical string form; nested values are rejected.
func (m *Metadata) MergeJSON(r io.Reader) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("juxfix: metadata: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("juxfix: metadata: top-level JSON value must be an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("juxfix: metadata: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("juxfix: metadata: unexpected token %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("juxfix: metadata: %w", err)
		}
		var val string
		switch v := valTok.(type) {
		case string:
			val = v
		case json.Number:
			val = v.String()
		case bool:
			val = strconv.FormatBool(v)
		case nil:
			val = ""
		default:
			return fmt.Errorf("juxfix: metadata: value for %q must be a string, number or bool", key)
		}
		m.Set(key, val)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("juxfix: metadata: %w", err)
	}
	return nil
}

// Enrich appends one property per metadata entry to the document's property
// list, in mapping order, after any pre-existing entries. Existing
// properties are never removed or overwritten, even on name collisions.
// Enriching with empty metadata still materializes the property list.
func Enrich(doc *Document, md Metadata) {
	props := doc.Properties()
	for _, e := range md {
		props.Append(e.Name, e.Value)
	}
}

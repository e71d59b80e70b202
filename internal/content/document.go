// Package content models the site-content document edited in the CMS and staged for publish.
//
// A Document is an arbitrarily nested JSON object. The publish pipeline treats it as an
// opaque blob; only the editor addresses into it, through dot-separated paths.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// Document is a JSON object keyed by property name.
type Document map[string]any

// ErrInvalidDocument is returned when a payload is absent or not a JSON object.
var ErrInvalidDocument = errors.ValidationError("Invalid site data provided").Build()

// Parse decodes raw JSON into a Document. Empty input, JSON null and any non-object
// value are rejected with ErrInvalidDocument.
func Parse(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrInvalidDocument
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.ValidationError("Invalid site data provided").
			WithCause(err).
			Build()
	}
	if dec.More() {
		return nil, errors.ValidationError("Invalid site data provided").
			WithContext("reason", "trailing data after JSON value").
			Build()
	}
	return FromValue(v)
}

// FromValue accepts an already-decoded value and returns it as a Document if it is
// object-shaped. Other Go values (typed maps, structs) are accepted when they encode to a
// JSON object, and are normalised through that encoding.
func FromValue(v any) (Document, error) {
	switch doc := v.(type) {
	case Document:
		if doc == nil {
			return nil, ErrInvalidDocument
		}
		return doc, nil
	case map[string]any:
		if doc == nil {
			return nil, ErrInvalidDocument
		}
		return Document(doc), nil
	case nil, string, bool, float64, json.Number, []any:
		return nil, ErrInvalidDocument
	default:
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, errors.ValidationError("Invalid site data provided").
				WithCause(err).
				Build()
		}
		return Parse(data)
	}
}

// Marshal serializes the document the way it is stored in every target: two-space
// indented JSON terminated by a newline. Values that cannot be represented in JSON
// (cycles, NaN, functions, channels) yield a validation error.
func Marshal(doc Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrInvalidDocument
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, errors.ValidationError("document is not JSON-serializable").
			WithCause(err).
			Build()
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy of the document. Nested maps and slices are copied;
// scalar values are shared.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	return cloneValue(map[string]any(doc)).(map[string]any)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return Document(cloneValue(map[string]any(val)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return val
	}
}

// String renders the document compactly for logs and debugging.
func (d Document) String() string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("<invalid document: %v>", err)
	}
	return string(b)
}

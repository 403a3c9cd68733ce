package calendar

import (
	"bytes"
	"encoding/json"
)

// Export keys of an event, in the order of a full export.
const (
	KeySummary      = "summary"
	KeyDescription  = "description"
	KeyLocation     = "location"
	KeyStatus       = "status"
	KeyVisibility   = "visibility"
	KeyTransparency = "transparency"
	KeyAttendees    = "attendees"
	KeyStart        = "start"
	KeyEnd          = "end"
)

// Property is one key of an exported representation.
type Property struct {
	Key   string
	Value any
}

// Document is an ordered JSON object. Keys marshal in slice order.
type Document []Property

// Get returns the value stored under key.
func (d Document) Get(key string) (any, bool) {
	for _, p := range d {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (d Document) Keys() []string {
	keys := make([]string, len(d))
	for i, p := range d {
		keys[i] = p.Key
	}
	return keys
}

// MarshalJSON renders the document as a JSON object.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

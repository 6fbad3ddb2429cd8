// Package record holds caller-supplied input rows.
//
// A Row is an ordered mapping of field name to raw scalar value. Order is
// kept from the JSON object or CSV header it came from, because batch output
// echoes the caller's columns back in the order they were sent.
package record

import (
	"bytes"
	"encoding/json"

	"github.com/teranos/exopredict/errors"
)

// Row is one input record. The zero value is an empty row ready to use.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a row from alternating key, value pairs.
func NewRow(kv ...any) Row {
	var r Row
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		r.Set(key, kv[i+1])
	}
	return r
}

// FromMap builds a row from m. Map iteration order is random, so keys are
// supplied explicitly; keys absent from m are skipped.
func FromMap(keys []string, m map[string]any) Row {
	var r Row
	for _, k := range keys {
		if v, ok := m[k]; ok {
			r.Set(k, v)
		}
	}
	return r
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the raw value for key.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present, even with a null value.
func (r Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns field names in insertion order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Row) Len() int { return len(r.keys) }

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	var c Row
	for _, k := range r.keys {
		c.Set(k, r.values[k])
	}
	return c
}

// MarshalJSON writes the row as a JSON object in key order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", k)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order. Numbers are kept as
// json.Number so integers and decimals are echoed back verbatim.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "read row")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.NewInvalidRequestError("row must be a JSON object")
	}

	*r = Row{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "read row key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.NewInvalidRequestError("row key %v is not a string", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return errors.Wrapf(err, "read value of %q", key)
		}
		r.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return errors.Wrap(err, "read row end")
	}
	return nil
}

// ParseJSON decodes either a single JSON object or an array of objects.
// single reports which shape the payload had.
func ParseJSON(data []byte) (rows []Row, single bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, errors.NewInvalidRequestError("no data provided")
	}

	switch trimmed[0] {
	case '{':
		var row Row
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, false, errors.Wrap(errors.ErrInvalidRequest, err.Error())
		}
		return []Row{row}, true, nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, false, errors.Wrap(errors.ErrInvalidRequest, err.Error())
		}
		rows = make([]Row, 0, len(raw))
		for i, item := range raw {
			var row Row
			if err := json.Unmarshal(item, &row); err != nil {
				return nil, false, errors.NewInvalidRequestError("row %d must be an object: %v", i, err)
			}
			rows = append(rows, row)
		}
		return rows, false, nil
	default:
		return nil, false, errors.NewInvalidRequestError("data must be an object or an array of objects")
	}
}

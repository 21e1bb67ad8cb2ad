// Package record holds the opaque CMS record payload.
package record

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// IDField is the payload key carrying the record identifier.
const IDField = "id"

// Record is a CMS document: a stable ID plus a field set owned by the index.
type Record struct {
	id     string
	fields map[string]string
}

// New creates a Record. The ID must be non-empty.
func New(id string, fields map[string]string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record ID is required")
	}
	return Record{id: id, fields: maps.Clone(fields)}, nil
}

// ID returns the record identifier.
func (r Record) ID() string { return r.id }

// Field returns a field value and whether it was present.
func (r Record) Field(name string) (string, bool) {
	if name == IDField {
		return r.id, true
	}
	v, ok := r.fields[name]
	return v, ok
}

// Fields returns a copy of the field set (without the ID).
func (r Record) Fields() map[string]string { return maps.Clone(r.fields) }

// FieldNames returns the sorted field names.
func (r Record) FieldNames() []string {
	return slices.Sorted(maps.Keys(r.fields))
}

// MarshalJSON renders the record as a flat object with "id" first-class.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(r.fields)+1)
	maps.Copy(m, r.fields)
	m[IDField] = r.id
	return json.Marshal(m)
}

// FromJSON decodes an upstream payload. Non-string scalars are stringified;
// nested values are kept as their JSON text.
func FromJSON(data []byte) (Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			fields[k] = s
			continue
		}
		if string(v) == "null" {
			continue
		}
		fields[k] = string(v)
	}

	id := fields[IDField]
	delete(fields, IDField)
	return New(id, fields)
}

// All adapts a slice to the streaming shape consumed by the export builder.
func All(records []Record) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}
}

package recordstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the timestamp format the store writes for created/updated.
const TimeLayout = "2006-01-02 15:04:05.000Z"

// Record is a schemaless record as returned by the store. Values stay raw
// until a typed accessor asks for them.
type Record map[string]json.RawMessage

// NewRecord builds a Record from plain values.
func NewRecord(data map[string]interface{}) (Record, error) {
	rec := make(Record, len(data))
	for k, v := range data {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding field %s: %w", k, err)
		}
		rec[k] = raw
	}
	return rec, nil
}

// ID returns the record id.
func (r Record) ID() string {
	return r.String("id")
}

// Has reports whether key is present and not null.
func (r Record) Has(key string) bool {
	raw, ok := r[key]
	return ok && string(raw) != "null"
}

// String returns a string field, or "" when missing or not a string.
func (r Record) String(key string) string {
	var s string
	if err := r.Decode(key, &s); err != nil {
		return ""
	}
	return s
}

// Float returns a numeric field, or 0 when missing or not a number.
func (r Record) Float(key string) float64 {
	var f float64
	if err := r.Decode(key, &f); err != nil {
		return 0
	}
	return f
}

// Bool returns a boolean field, or false when missing.
func (r Record) Bool(key string) bool {
	var b bool
	if err := r.Decode(key, &b); err != nil {
		return false
	}
	return b
}

// Strings returns a multi-value field. A single string value (a one-to-one
// relation) is returned as a one-element slice.
func (r Record) Strings(key string) []string {
	var ss []string
	if err := r.Decode(key, &ss); err == nil {
		return ss
	}
	if s := r.String(key); s != "" {
		return []string{s}
	}
	return nil
}

// Time returns a timestamp field, or the zero time when missing or malformed.
func (r Record) Time(key string) time.Time {
	s := r.String(key)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05.999Z07:00", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Decode unmarshals a single field into v.
func (r Record) Decode(key string, v interface{}) error {
	raw, ok := r[key]
	if !ok {
		return fmt.Errorf("field %s not present", key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding field %s: %w", key, err)
	}
	return nil
}

// Expand returns the expanded relation stored under key. For multi-value
// relations the first expanded record is returned.
func (r Record) Expand(key string) (Record, bool) {
	all := r.ExpandAll(key)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// ExpandAll returns every expanded record stored under key.
func (r Record) ExpandAll(key string) []Record {
	var expand map[string]json.RawMessage
	if err := r.Decode("expand", &expand); err != nil {
		return nil
	}
	raw, ok := expand[key]
	if !ok {
		return nil
	}
	var one Record
	if err := json.Unmarshal(raw, &one); err == nil {
		return []Record{one}
	}
	var many []Record
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

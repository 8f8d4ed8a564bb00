package survey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

var nullLiteral = []byte("null")

// Optional records whether a JSON key was present at all, so partial
// updates can tell an absent key from an explicit null or zero value.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Null = bytes.Equal(bytes.TrimSpace(data), nullLiteral)
	return json.Unmarshal(data, &o.Value)
}

// Or returns the decoded value when the key was present, else fallback.
func (o Optional[T]) Or(fallback T) T {
	if o.Set {
		return o.Value
	}
	return fallback
}

// OrIfNotNull is Or for non-nullable columns: an explicit null keeps fallback.
func (o Optional[T]) OrIfNotNull(fallback T) T {
	if o.Set && !o.Null {
		return o.Value
	}
	return fallback
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Timestamp accepts RFC 3339 as well as the shorter forms HTML date and
// datetime-local inputs submit. An empty string decodes to the zero time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// TimePtr converts t to a nullable column value.
func (t *Timestamp) TimePtr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func isBlankJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, nullLiteral)
}

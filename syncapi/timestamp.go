package syncapi

import (
	"bytes"
	"encoding/json"
	"time"
)

// Timestamp is a server time. Raw keeps the value as sent; Time is zero when
// it did not parse as RFC 3339, so an odd format never fails a decode.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t, Raw: t.Format(time.RFC3339)}
}

// Valid reports whether Raw parsed.
func (t Timestamp) Valid() bool { return !t.Time.IsZero() }

// String is the local time when parsed, the raw text otherwise.
func (t Timestamp) String() string {
	if t.Valid() {
		return t.Time.Local().Format(time.RFC1123)
	}
	return t.Raw
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw != "" {
		return json.Marshal(t.Raw)
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Not a string (epoch number, object): keep the literal.
		s = string(bytes.TrimSpace(data))
	}
	t.Raw = s
	t.Time = time.Time{}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
	}
	return nil
}

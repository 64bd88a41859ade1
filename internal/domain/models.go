package domain

import (
	"strings"
	"time"
)

// TimestampLayout matches JavaScript's Date.prototype.toISOString, so a
// browser client can round-trip the value without changing it.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// StatusCheck is one status ping reported by a named client. Records are
// immutable once stored.
type StatusCheck struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Timestamp  Timestamp `json:"timestamp"`
}

// Timestamp is a UTC instant with millisecond precision.
type Timestamp struct {
	time.Time
}

// NewTimestamp normalises t to UTC and drops sub-millisecond precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

func (t Timestamp) String() string {
	return t.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimestamp accepts any RFC 3339 value, including the millisecond layout
// produced by String.
func ParseTimestamp(s string) (Timestamp, error) {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, err
	}
	return NewTimestamp(parsed), nil
}

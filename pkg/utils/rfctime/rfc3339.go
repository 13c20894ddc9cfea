// Package rfctime interchanges timestamps of the job history as RFC3339.
package rfctime

import (
	"bytes"
	"encoding/json"
	"time"
)

// Layout for output. The offset is always numeric, never "Z".
const RFC3339DateTimeFormat string = "2006-01-02T15:04:05.000-07:00"

// RFC3339 is a time.Time written as RFC3339 date-time with milliseconds.
type RFC3339 time.Time

func (t RFC3339) Time() time.Time {
	return time.Time(t)
}

func (t RFC3339) String() string {
	return time.Time(t).Format(RFC3339DateTimeFormat)
}

// Parse reads s, accepting "Z" as offset too.
func Parse(s string) (RFC3339, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return RFC3339{}, err
	}
	return RFC3339(t), nil
}

func (t RFC3339) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *RFC3339) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

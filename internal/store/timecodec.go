package store

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// jsDateLayout is what a browser's Date.prototype.toString produces, minus
// the trailing zone name in parentheses.
const jsDateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700"

// looseTime decodes the timestamp shapes found in older documents:
// RFC 3339 strings, bare dates and date-times, browser date strings and
// Unix milliseconds. It never fails; Valid is false when nothing matched.
type looseTime struct {
	time.Time
	Valid bool
}

func (t *looseTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		t.Time, t.Valid = parseTimestamp(s)
		return nil
	}

	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil {
		t.Time, t.Valid = time.UnixMilli(int64(ms)).UTC(), true
	}
	return nil
}

func (t looseTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if i := strings.Index(s, " ("); i > 0 {
		if t, err := time.Parse(jsDateLayout, s[:i]); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(jsDateLayout, s); err == nil {
		return t, true
	}
	if t, err := now.Parse(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

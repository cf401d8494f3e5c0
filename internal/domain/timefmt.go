package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	isoLayout      = "2006-01-02T15:04:05-07:00"
	isoMicroLayout = "2006-01-02T15:04:05.000000-07:00"
	humanLayout    = "January 02, 2006 at 03:04 PM"
	invitationTime = "03:04 PM on January 02, 2006"
)

// naiveLayouts are accepted without an offset and read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp. A trailing Z and numeric offsets
// are honoured; timestamps without an offset are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05.999999999Z07:00", s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid isoformat string: %q", s)
}

// FormatISO renders t with a numeric offset, adding microseconds only when
// t has a sub-second part.
func FormatISO(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format(isoMicroLayout)
	}
	return t.Format(isoLayout)
}

// FormatHuman renders t as "January 02, 2006 at 03:04 PM".
func FormatHuman(t time.Time) string {
	return t.Format(humanLayout)
}

// FormatInvitationTime renders t as "03:04 PM on January 02, 2006".
func FormatInvitationTime(t time.Time) string {
	return t.Format(invitationTime)
}

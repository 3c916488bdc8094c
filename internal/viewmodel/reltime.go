package viewmodel

import (
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp reads RFC 3339 and the backend's zone-less ISO form. A
// missing zone is read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// RelativeTime renders ts against now. Every unit is floored, so 90 minutes
// is "1 hr ago". Future timestamps read as "Just now". The value is computed
// once at render time; it does not tick.
func RelativeTime(ts, now time.Time) string {
	mins := int(now.Sub(ts) / time.Minute)
	if mins < 1 {
		return "Just now"
	}
	if mins < 60 {
		return fmt.Sprintf("%d min ago", mins)
	}
	hrs := mins / 60
	if hrs < 24 {
		return fmt.Sprintf("%d hr ago", hrs)
	}
	days := hrs / 24
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}

// FormatRelative parses raw and renders it relative to now, or "Unknown".
func FormatRelative(raw string, now time.Time) string {
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return "Unknown"
	}
	return RelativeTime(ts, now)
}

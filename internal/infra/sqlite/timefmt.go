package sqlite

import "time"

// TimeLayout is the fixed-width UTC layout used for every timestamp column, so text
// ordering in ORDER BY matches chronological ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout column; other RFC 3339 values are accepted too.
func ParseTime(s string) time.Time {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

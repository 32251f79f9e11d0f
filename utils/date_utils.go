package utils

import (
	"time"
)

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func ParseDate(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}

	for _, format := range dateFormats {
		if parsed, err := time.Parse(format, dateStr); err == nil {
			return parsed.UTC(), true
		}
	}

	return time.Time{}, false
}

// FormatDayMonthYear renders dd/mm/yyyy, or "N/A" for a zero time.
func FormatDayMonthYear(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("02/01/2006")
}

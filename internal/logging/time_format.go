package logging

import "time"

const (
	// Console runs are short and interactive, so the date is omitted.
	consoleTimestampLayout = "15:04:05"
	// Run log files are read after the fact and kept for days.
	fileTimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimestampLayout)
}

func formatFileTimestamp(ts time.Time) string {
	return ts.UTC().Format(fileTimestampLayout)
}

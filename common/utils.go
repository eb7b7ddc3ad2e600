package common

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format embedded in snapshot file names.
const DateLayout = "2006-01-02"

// GenerateRunID generates a unique identifier for one pipeline run.
// The identifier starts with the UTC start time in "YYYYMMDDHHMMSS" format so
// run IDs sort chronologically, followed by a short random suffix.
func GenerateRunID() string {
	return time.Now().UTC().Format("20060102150405") + "-" + uuid.NewString()[:8]
}

// ParseSnapshotDate parses a YYYY-MM-DD string as a UTC calendar date.
// An empty string yields today's date in UTC.
func ParseSnapshotDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

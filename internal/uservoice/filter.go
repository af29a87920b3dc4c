package uservoice

import (
	"fmt"
	"strings"
	"time"
)

// Timestamped is implemented by records carrying a creation timestamp
type Timestamped interface {
	Created() string
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp formats UserVoice and config files use.
// Layouts without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Since returns a new slice holding the records created at or after cutoff,
// in their original order. Records whose timestamp is missing or unparseable
// are kept. A zero cutoff keeps everything.
func Since[T Timestamped](records []T, cutoff time.Time) []T {
	kept := make([]T, 0, len(records))
	for _, r := range records {
		if cutoff.IsZero() {
			kept = append(kept, r)
			continue
		}
		created, err := ParseTime(r.Created())
		if err != nil || !created.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	return kept
}

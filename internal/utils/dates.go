package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate reads a calendar date given as YYYY-MM-DD, an ISO timestamp
// (only the part before 'T' is used) or DD/MM/YYYY.  The result is
// midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if i := strings.IndexByte(s, 'T'); i > 0 {
		s = s[:i]
	}
	layout := "2006-01-02"
	if strings.Contains(s, "/") {
		layout = "02/01/2006"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD; zero renders empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

package helpers

import (
	"strings"
	"time"
)

// Day-first and ISO dates, each optionally followed by a clock time. Single digit
// days and months are accepted by the layouts themselves.
var (
	dateLayouts  = []string{"2006-1-2", "2.1.2006"}
	clockLayouts = []string{"", " 15:04", " 15:04:05"}
)

// ParseFlexibleDate reads a date typed by a user, such as "2025-03-09",
// "9.3.2025" or "09.03.2025 23:05". The result is in loc (time.Local when nil).
func ParseFlexibleDate(input string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.Join(strings.Fields(input), " ")
	if s == "" {
		return time.Time{}, false
	}
	for _, date := range dateLayouts {
		for _, clock := range clockLayouts {
			if t, err := time.ParseInLocation(date+clock, s, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

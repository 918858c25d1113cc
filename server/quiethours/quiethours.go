// Package quiethours decides whether notifications fall inside a user's
// do-not-disturb window.
package quiethours

import (
	"strings"
	"time"

	"github.com/Daskott/guardian/server/apperr"
)

// Weekdays lists the accepted day names in calendar order, starting Monday.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Window is a daily time range, possibly crossing midnight, active on Days.
type Window struct {
	Enabled bool
	Start   string
	End     string
	Days    []string
}

// Suppressed reports whether notifications should be held back at the instant 'at'.
// The weekday and minute of day are taken in at's location. Both bounds are inclusive.
func (w Window) Suppressed(at time.Time) (bool, error) {
	if !w.Enabled || !containsDay(w.Days, Weekday(at)) {
		return false, nil
	}

	start, err := ParseClock(w.Start)
	if err != nil {
		return false, err
	}

	end, err := ParseClock(w.End)
	if err != nil {
		return false, err
	}

	current := at.Hour()*60 + at.Minute()

	// Overnight window e.g. 22:00 - 08:00
	if start > end {
		return current >= start || current <= end, nil
	}

	return current >= start && current <= end, nil
}

// ParseClock converts a zero-padded 24-hour "HH:MM" string to minutes since midnight.
func ParseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, apperr.Validationf("invalid time %q, expected HH:MM", value)
	}

	hour, ok := twoDigits(value[0:2])
	if !ok || hour > 23 {
		return 0, apperr.Validationf("invalid hour in %q", value)
	}

	minute, ok := twoDigits(value[3:5])
	if !ok || minute > 59 {
		return 0, apperr.Validationf("invalid minute in %q", value)
	}

	return hour*60 + minute, nil
}

// Weekday returns the lowercase English day name of t.
func Weekday(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// IsWeekday reports whether day is a lowercase English weekday name.
func IsWeekday(day string) bool {
	return containsDay(Weekdays, day)
}

// SortDays drops duplicates and unknown names and orders days Monday first.
func SortDays(days []string) []string {
	sorted := []string{}
	for _, weekday := range Weekdays {
		if containsDay(days, weekday) {
			sorted = append(sorted, weekday)
		}
	}
	return sorted
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

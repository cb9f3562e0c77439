package common

import (
	"errors"
	"time"
)

// Time formats used across the application for config parsing and output
const (
	SimpleTimeFormat = "2006-01-02 15:04:05"
	SimpleDateFormat = "2006-01-02"
)

// ErrNilPointer defines an error for a nil pointer
var ErrNilPointer = errors.New("nil pointer")

// MatchesDay returns whether two times fall on the same calendar date in t1's
// location
func MatchesDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.In(t1.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// StartOfDay strips the clock component from a time, keeping the location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StringSliceContains returns whether the haystack contains the needle
func StringSliceContains(haystack []string, needle string) bool {
	for x := range haystack {
		if haystack[x] == needle {
			return true
		}
	}
	return false
}

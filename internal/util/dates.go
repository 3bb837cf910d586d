package util

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseYYYYMMDD converts a numeric warehouse date (e.g. 20240131, or 2240131
// missing its leading zero) into a UTC midnight. ok is false for nulls and
// malformed values.
func ParseYYYYMMDD(v float64) (time.Time, bool) {
	if math.IsNaN(v) || v < 0 {
		return time.Time{}, false
	}
	return ParseYYYYMMDDString(strconv.FormatInt(int64(v), 10))
}

// ParseYYYYMMDDString is ParseYYYYMMDD for text values.
func ParseYYYYMMDDString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 8 {
		return time.Time{}, false
	}
	s = strings.Repeat("0", 8-len(s)) + s
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysBetween returns whole days from a to b, floored.
func DaysBetween(a, b time.Time) float64 {
	return math.Floor(b.Sub(a).Hours() / 24)
}

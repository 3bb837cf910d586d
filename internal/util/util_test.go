package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseYYYYMMDD(t *testing.T) {
	got, ok := ParseYYYYMMDD(20240131)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseYYYYMMDD(20241341)
	assert.False(t, ok)
	_, ok = ParseYYYYMMDDString("")
	assert.False(t, ok)
	_, ok = ParseYYYYMMDDString("abc")
	assert.False(t, ok)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 31.0, DaysBetween(a, a.AddDate(0, 1, 0)))
	assert.Equal(t, -1.0, DaysBetween(a, a.Add(-time.Hour)))
}

func TestRunIDsAreMonotonicWithinSameMicrosecond(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 123456000, time.UTC)
	a := nextRunID(now)
	b := nextRunID(now)
	assert.Equal(t, int64(250304050607123456), a)
	assert.Equal(t, a+1, b)
	assert.Greater(t, NewRunID(), b)
}

func TestNewVersionIsUnique(t *testing.T) {
	assert.NotEqual(t, NewVersion(), NewVersion())
	assert.Len(t, NewVersion(), 26)
}

package util

import (
	"strconv"
	"sync"
	"time"
)

var (
	runIDMu   sync.Mutex
	lastRunID int64
)

// NewRunID returns a numeric id shaped like YYMMDDhhmmssffffff. Ids are
// strictly increasing within the process, so two runs starting in the same
// microsecond still get distinct ids.
func NewRunID() int64 {
	return nextRunID(time.Now())
}

func nextRunID(now time.Time) int64 {
	id := timestampID(now)

	runIDMu.Lock()
	defer runIDMu.Unlock()
	if id <= lastRunID {
		id = lastRunID + 1
	}
	lastRunID = id
	return id
}

func timestampID(t time.Time) int64 {
	s := t.Format("060102150405") + t.Format(".000000")[1:]
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

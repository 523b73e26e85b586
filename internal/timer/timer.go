package timer

import (
	"sync/atomic"
	"time"
)

const (
	// Resolution is how often the cached clock is refreshed.
	Resolution = 500 * time.Millisecond
	// Coarse is the shortest timeout a deadline is computed off the cached clock for. The
	// clock lags up to Resolution behind, which would eat up most of shorter timeouts.
	Coarse = 4 * Resolution
)

// clock holds the unix-time in milliseconds as of the last refresh.
var clock = new(atomic.Int64)

func init() {
	clock.Store(time.Now().UnixMilli())

	go func() {
		ticker := time.NewTicker(Resolution)
		for now := range ticker.C {
			clock.Store(now.UnixMilli())
		}
	}()
}

// Now returns the cached time. It's never ahead of time.Now(), but may lag behind by up
// to Resolution.
func Now() time.Time {
	return time.UnixMilli(clock.Load())
}

// Deadline returns the moment the timeout d, started now, expires at. Deadlines are
// never earlier than time.Now().Add(d). Short timeouts are exact, while ones of at least
// Coarse are cheaper and may be late by up to Resolution.
func Deadline(d time.Duration) time.Time {
	if d < Coarse {
		return time.Now().Add(d)
	}

	return Now().Add(d + Resolution)
}

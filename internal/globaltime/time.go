// Package globaltime is the process clock. Job timestamps and probe
// latencies read it so tests can pin time.
package globaltime

import (
	"sync/atomic"
	"time"
)

type clock func() time.Time

var current atomic.Pointer[clock]

func init() {
	Reset()
}

func Now() time.Time {
	return (*current.Load())()
}

func UTC() time.Time {
	return Now().UTC()
}

// Since is time.Since against the process clock.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// Freeze pins the clock to t and returns a func that restores the wall clock.
func Freeze(t time.Time) func() {
	frozen := clock(func() time.Time { return t })
	current.Store(&frozen)
	return Reset
}

func Reset() {
	wall := clock(time.Now)
	current.Store(&wall)
}

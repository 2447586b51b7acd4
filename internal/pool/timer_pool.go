// Package pool reuses timers of the reply and sleep waits.
package pool

import (
	"sync"
	"time"
)

var timers sync.Pool

// GetTimer returns a timer firing after d, taken from the pool when one is available.
//
// Release it with PutTimer once the wait is over, whether or not it fired.
func GetTimer(d time.Duration) *time.Timer {
	t, ok := timers.Get().(*time.Timer)
	if !ok {
		return time.NewTimer(d)
	}

	t.Reset(d)

	return t
}

// PutTimer stops t and returns it to the pool. t must not be used afterwards.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		// fired but not received
		select {
		case <-t.C:
		default:
		}
	}

	timers.Put(t)
}

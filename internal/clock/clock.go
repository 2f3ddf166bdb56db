// Package clock abstracts time so timed sequences can be driven
// deterministically in tests. Production code injects Real(); tests inject
// Fake() and move time forward with Advance.
package clock

import "time"

// Clock is the subset of the time package used by timed components.
type Clock interface {
	Now() time.Time
	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

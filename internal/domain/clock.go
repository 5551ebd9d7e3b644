package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps ProcessedAt during intake. Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the intake time source. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c != nil {
		clock = c
		return
	}
	clock = clockwork.NewRealClock()
}

// Now returns the current intake time.
func Now() time.Time { return clock.Now() }

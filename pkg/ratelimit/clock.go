package ratelimit

import "time"

// Clock abstracts wall-clock reads so quota windows, cooldown checks, and
// hour-of-day decisions are testable against simulated time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

package weapon

import "time"

// Clock supplies the current time for cooldown and charge gating.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

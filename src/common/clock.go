package common

import "time"

// Clock supplies the current time. Tests swap it out with NewClock to
// pin contract and booking date math.
var Clock = func() time.Time {
	return time.Now()
}

func NewClock(fn func() time.Time) {
	Clock = fn
}

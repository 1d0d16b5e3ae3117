package transport

import "time"

// Timer is a pending callback armed by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc arms fn to run once after d. time.AfterFunc satisfies it through
// SystemAfter; tests substitute a manual queue.
type AfterFunc func(d time.Duration, fn func()) Timer

// SystemAfter is the wall-clock timer facility.
func SystemAfter(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Defer fires fn roughly when the audio clock, currently at now, reaches at.
// Targets already in the past fire as soon as the timer facility allows.
func Defer(after AfterFunc, now, at float64, fn func()) Timer {
	if after == nil {
		after = SystemAfter
	}
	delay := at - now
	if delay < 0 {
		delay = 0
	}
	return after(time.Duration(delay*float64(time.Second)), fn)
}

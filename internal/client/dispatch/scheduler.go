package dispatch

import "time"

// Scheduler creates cancellable one-shot timers. Injecting it lets tests
// drive the quiet window with a virtual clock instead of wall-clock sleeps.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending callback. Stop reports whether the callback was
// prevented from running.
type Timer interface {
	Stop() bool
}

type realScheduler struct{}

// NewScheduler returns the wall-clock Scheduler used in production.
func NewScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

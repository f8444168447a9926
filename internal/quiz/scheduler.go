package quiz

import "time"

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs a callback once after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Clock schedules with the runtime timer.
type Clock struct{}

// AfterFunc wraps time.AfterFunc.
func (Clock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

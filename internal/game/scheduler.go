package game

import "time"

// Timer is a pending scheduled call. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The store uses it for the computer's think delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

package session

import (
	"time"
)

// Pending one-shot call
type Handle interface {
	// Stop the call if it has not fired yet. Safe to call more than once
	Cancel()
}

type Scheduler interface {
	// Run fn once after delay
	Schedule(delay time.Duration, fn func()) Handle
}

// Scheduler on real timers
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) Handle {
	return timerHandle{timer: time.AfterFunc(delay, fn)}
}

type timerHandle struct {
	timer *time.Timer
}

func (h timerHandle) Cancel() {
	h.timer.Stop()
}

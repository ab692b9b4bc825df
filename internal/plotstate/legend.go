package plotstate

import (
	"sync"
	"time"
)

const (
	// DoubleClickWindow is the longest gap between two legend clicks that
	// still counts as a double click.
	DoubleClickWindow = 300 * time.Millisecond
	// SingleClickDelay is how long a single click waits for a second one.
	SingleClickDelay = 310 * time.Millisecond
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler provides the clock and delayed calls the LegendClicker uses.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) Now() time.Time { return time.Now() }

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler uses the wall clock and time.AfterFunc.
func RealScheduler() Scheduler { return realScheduler{} }

// LegendClicker tells single legend clicks from double clicks. A single
// click runs OnClick once the double-click window has passed; a second click
// inside the window cancels it and runs OnDoubleClick instead.
type LegendClicker struct {
	OnClick       func(runID string)
	OnDoubleClick func(runID string)

	sched Scheduler

	mu        sync.Mutex
	prevClick time.Time
	pending   Timer
}

func NewLegendClicker(sched Scheduler, onClick, onDoubleClick func(runID string)) *LegendClicker {
	if sched == nil {
		sched = RealScheduler()
	}
	return &LegendClicker{OnClick: onClick, OnDoubleClick: onDoubleClick, sched: sched}
}

// Click records a click on the legend entry of runID.
func (l *LegendClicker) Click(runID string) {
	l.mu.Lock()
	now := l.sched.Now()
	if !l.prevClick.IsZero() && now.Sub(l.prevClick) < DoubleClickWindow {
		if l.pending != nil {
			l.pending.Stop()
			l.pending = nil
		}
		l.prevClick = time.Time{}
		l.mu.Unlock()
		if l.OnDoubleClick != nil {
			l.OnDoubleClick(runID)
		}
		return
	}
	l.prevClick = now
	var timer Timer
	timer = l.sched.AfterFunc(SingleClickDelay, func() {
		l.mu.Lock()
		if l.pending == timer {
			l.pending = nil
		}
		l.mu.Unlock()
		if l.OnClick != nil {
			l.OnClick(runID)
		}
	})
	l.pending = timer
	l.mu.Unlock()
}

// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package q931

import (
	"time"

	"github.com/intuitivelabs/timestamp"
)

// TimerF is the type of the timer expire callbacks.
type TimerF func(t *Timer, data interface{})

// Timer is a one-shot timer handled by a TimerEngine. A fired timer must
// be explicitly re-started to fire again.
type Timer struct {
	next, prev *Timer // pending list links

	Expire timestamp.TS

	f       TimerF
	data    interface{}
	name    string
	gen     uint64 // engine run generation when started
	pending bool
}

// Init sets the timer callback, callback data and a name used in logs.
// It must be called before using the timer.
func (t *Timer) Init(name string, f TimerF, data interface{}) {
	t.name = name
	t.f = f
	t.data = data
	t.next = t
	t.prev = t
}

// Pending returns true if the timer is armed.
func (t *Timer) Pending() bool {
	return t.pending
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// ClockF returns the current time.
type ClockF func() timestamp.TS

// TimerEngine keeps the list of the armed timers. It is not concurrency
// safe: it must be used only from the goroutine running the dispatch
// loop. Timer callbacks must not call RunDue().
type TimerEngine struct {
	head    Timer // pending list head (only next & prev are used)
	clock   ClockF
	gen     uint64
	n       int
	Expired StatCounter
}

// Init initializes the engine. If clock is nil, timestamp.Now is used.
func (te *TimerEngine) Init(clock ClockF) {
	te.head.next = &te.head
	te.head.prev = &te.head
	if clock == nil {
		clock = timestamp.Now
	}
	te.clock = clock
}

// Now returns the current time, as seen by the engine.
func (te *TimerEngine) Now() timestamp.TS {
	return te.clock()
}

// Pending returns the number of armed timers.
func (te *TimerEngine) Pending() int {
	return te.n
}

// Start arms t to fire after d. If t is already armed, the deadline is
// moved.
func (te *TimerEngine) Start(t *Timer, d time.Duration) {
	if t.f == nil {
		Log.PANIC("TimerEngine.Start: timer %q %p not initialized\n",
			t.name, t)
	}
	t.Expire = te.clock().Add(d)
	t.gen = te.gen
	if t.pending {
		return
	}
	t.prev = &te.head
	t.next = te.head.next
	t.next.prev = t
	te.head.next = t
	t.pending = true
	te.n++
}

// Stop disarms t. It is a no-op if t is not armed.
func (te *TimerEngine) Stop(t *Timer) {
	if !t.pending {
		return
	}
	t.prev.next = t.next
	t.next.prev = t.prev
	t.next = t
	t.prev = t
	t.pending = false
	te.n--
}

// Next returns the delay until the next deadline and true, or false if
// no timer is armed. A negative delay is returned as 0.
func (te *TimerEngine) Next() (time.Duration, bool) {
	if te.n == 0 {
		return 0, false
	}
	now := te.clock()
	min := te.head.next
	for t := min.next; t != &te.head; t = t.next {
		if t.Expire.Before(min.Expire) {
			min = t
		}
	}
	if !min.Expire.After(now) {
		return 0, true
	}
	return min.Expire.Sub(now), true
}

// RunDue fires all the timers whose deadline has passed, in deadline
// order, and returns the delay until the next deadline (see Next()).
// Timers re-armed from a callback fire at the earliest on the next
// RunDue call.
func (te *TimerEngine) RunDue() (time.Duration, bool) {
	te.gen++
	cur := te.gen
	for {
		now := te.clock()
		var due *Timer
		for t := te.head.next; t != &te.head; t = t.next {
			if t.gen >= cur || t.Expire.After(now) {
				continue
			}
			if due == nil || t.Expire.Before(due.Expire) {
				due = t
			}
		}
		if due == nil {
			break
		}
		te.Stop(due)
		te.Expired.Inc(1)
		if DBGon() {
			DBG("timer %s (%p) expired\n", due.name, due)
		}
		due.f(due, due.data)
	}
	return te.Next()
}

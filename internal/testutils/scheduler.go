package testutils

import (
	"sort"
	"time"

	"github.com/srg/blebehave/internal/eventloop"
)

// ManualScheduler is an eventloop.Scheduler driven by a virtual clock.
// Timer callbacks run synchronously inside Advance, on the caller goroutine.
type ManualScheduler struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	seq      int
	due      time.Duration
	interval time.Duration // zero for one-shot timers
	fn       func()
	active   bool
}

func (t *manualTimer) Stop() bool {
	was := t.active
	t.active = false
	return was
}

// NewManualScheduler creates a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

var _ eventloop.Scheduler = (*ManualScheduler)(nil)

func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) eventloop.Timer {
	return s.add(d, 0, fn)
}

func (s *ManualScheduler) Every(d time.Duration, fn func()) eventloop.Timer {
	if d <= 0 {
		panic("ManualScheduler.Every: non-positive interval")
	}
	return s.add(d, d, fn)
}

func (s *ManualScheduler) add(d, interval time.Duration, fn func()) *manualTimer {
	s.seq++
	t := &manualTimer{seq: s.seq, due: s.now + d, interval: interval, fn: fn, active: true}
	s.timers = append(s.timers, t)
	return t
}

// Now returns the virtual time elapsed since creation.
func (s *ManualScheduler) Now() time.Duration {
	return s.now
}

// Advance moves the clock forward by d and fires every timer that becomes due,
// in due order. Timers created by callbacks fire too when they fall inside the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		s.now = next.due
		if next.interval > 0 {
			next.due += next.interval
		} else {
			next.active = false
		}
		next.fn()
	}
	s.now = target
	s.compact()
}

func (s *ManualScheduler) nextDue(limit time.Duration) *manualTimer {
	var next *manualTimer
	for _, t := range s.timers {
		if !t.active || t.due > limit {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (s *ManualScheduler) compact() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if t.active {
			live = append(live, t)
		}
	}
	s.timers = live
}

// Pending returns the delays until each active timer fires, shortest first.
func (s *ManualScheduler) Pending() []time.Duration {
	var out []time.Duration
	for _, t := range s.timers {
		if t.active {
			out = append(out, t.due-s.now)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PendingCount returns the number of active timers.
func (s *ManualScheduler) PendingCount() int {
	return len(s.Pending())
}

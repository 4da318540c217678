package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/srg/blebehave/internal/groutine"
)

// Timer is a cancellable scheduled task.
type Timer interface {
	// Stop prevents future fires. It reports whether the timer was still active.
	// A fire that was already queued on the loop may still run.
	Stop() bool
}

// Scheduler creates timers whose callbacks run on the event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// AfterFunc schedules a single fire of fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Every schedules fn on the loop every d until stopped or the loop closes.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	t := &ticker{
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}

	groutine.Go(context.Background(), "event-loop-ticker", func(ctx context.Context) {
		defer t.ticker.Stop()
		for {
			select {
			case <-t.ticker.C:
				if !l.Post(fn) {
					return
				}
			case <-t.stop:
				return
			case <-l.done:
				return
			}
		}
	})
	return t
}

type ticker struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		close(t.stop)
		stopped = true
	})
	return stopped
}

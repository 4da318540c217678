// Package eventloop provides the single serial queue on which every radio
// callback, timer fire and orchestrator call executes.
//
// Handlers run one at a time in posting order, so the state they touch needs
// no locking as long as it is only reached through the loop.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/groutine"
)

// DefaultQueueSize is the number of pending work items a Loop buffers before Post blocks.
const DefaultQueueSize = 256

// ErrClosed is returned by Do once the loop has stopped.
var ErrClosed = errors.New("event loop closed")

// Loop is a single-goroutine serial executor.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	once   sync.Once
	logger *logrus.Logger
}

// New creates a loop with the given queue capacity (DefaultQueueSize when <= 0).
func New(capacity int, logger *logrus.Logger) *Loop {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Loop{
		queue:  make(chan func(), capacity),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start runs the loop on a named goroutine until ctx is cancelled.
func (l *Loop) Start(ctx context.Context) {
	groutine.Go(ctx, "event-loop", func(ctx context.Context) {
		_ = l.Run(ctx)
	})
}

// Run executes posted work on the calling goroutine until ctx is cancelled.
// It returns ctx.Err() after marking the loop closed.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()

	for {
		select {
		case <-ctx.Done():
			l.logger.WithField("pending", len(l.queue)).Debug("Event loop stopping")
			return ctx.Err()
		case fn := <-l.queue:
			l.exec(ctx, fn)
		}
	}
}

func (l *Loop) exec(ctx context.Context, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.WithFields(logrus.Fields{
				"panic":     fmt.Sprint(r),
				"goroutine": groutine.GetName(ctx),
			}).Error("Event handler panicked")
		}
	}()
	fn()
}

func (l *Loop) close() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn. It blocks while the queue is full and reports false if the loop stopped.
// Post must not be called from the loop goroutine while the queue may be full.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

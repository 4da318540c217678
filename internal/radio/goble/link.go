package goble

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// link owns one connection attempt and, once dialed, its client.
// GATT commands are queued and executed in order by the link goroutine.
type link struct {
	id     uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending []func(Client)
	wake    chan struct{}

	cancelled atomic.Bool
	dialed    atomic.Bool
}

func newLink(parent context.Context, id uuid.UUID) *link {
	ctx, cancel := context.WithCancel(parent)
	return &link{id: id, ctx: ctx, cancel: cancel, wake: make(chan struct{}, 1)}
}

// push queues op without blocking the caller.
func (l *link) push(op func(Client)) {
	l.mu.Lock()
	l.pending = append(l.pending, op)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *link) drain() []func(Client) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ops := l.pending
	l.pending = nil
	return ops
}

// close marks the link as purposefully cancelled and stops its goroutine.
func (l *link) close() {
	l.cancelled.Store(true)
	l.cancel()
}


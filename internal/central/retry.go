package central

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/eventloop"
)

// pendingRetry is the armed retry of one device. epoch identifies the arming so
// a fire already queued on the loop can tell it was superseded.
type pendingRetry struct {
	timer eventloop.Timer
	epoch uint64
}

// scheduleRetry arms the retry slot of id. A retry already armed for id is superseded;
// retries of other devices are left alone.
func (c *Central) scheduleRetry(kind RetryKind, id uuid.UUID, delay time.Duration) {
	c.cancelRetry(id)
	c.retryEpoch++
	epoch := c.retryEpoch
	c.retries[id] = &pendingRetry{
		epoch: epoch,
		timer: c.clock.AfterFunc(delay, func() { c.retryFired(epoch, kind, id) }),
	}
}

// cancelRetry invalidates the pending retry of id, including a fire already queued on the loop.
func (c *Central) cancelRetry(id uuid.UUID) bool {
	p, ok := c.retries[id]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(c.retries, id)
	return true
}

// cancelRetries invalidates every pending retry.
func (c *Central) cancelRetries() {
	for id := range c.retries {
		c.cancelRetry(id)
	}
}

// RetryPending reports whether any retry timer is armed.
func (c *Central) RetryPending() bool {
	return len(c.retries) > 0
}

// RetryPendingFor reports whether a retry timer is armed for id.
func (c *Central) RetryPendingFor(id uuid.UUID) bool {
	_, ok := c.retries[id]
	return ok
}

func (c *Central) retryFired(epoch uint64, kind RetryKind, id uuid.UUID) {
	p, ok := c.retries[id]
	if !ok || p.epoch != epoch {
		c.debug(logrus.Fields{"kind": kind.String(), "device": id.String()}, "Ignoring stale retry")
		return
	}
	delete(c.retries, id)
	c.radio.StopScan()

	switch kind {
	case RetryConnect:
		c.failRetries++
	case RetryReconnect:
		c.reconnectRetries++
	}

	rec, ok := c.discovered.get(id)
	if !ok {
		c.debug(logrus.Fields{"kind": kind.String(), "device": id.String()}, "Retry target no longer discovered")
		return
	}
	if c.connected.has(id) {
		c.debug(logrus.Fields{"kind": kind.String(), "device": rec.Identity().String()}, "Retry target already connected")
		return
	}

	c.debug(logrus.Fields{
		"kind":      kind.String(),
		"device":    rec.Identity().String(),
		"connect":   c.failRetries,
		"reconnect": c.reconnectRetries,
	}, "Retrying connection")
	// The internal connect keeps the reconnect counter, so a reconnect that
	// succeeds does not refill the budget it spent.
	c.connect(rec)
}

func (c *Central) giveUp(err *RetryError) {
	if c.sink.RetryExhausted != nil {
		c.sink.RetryExhausted(err)
	}
}

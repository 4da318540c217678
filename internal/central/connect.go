package central

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/device"
)

// Connect requests a connection to rec. It returns false, without touching the
// radio or the local state, when nothing was discovered, when rec is not in the
// discovered registry, or when it is already connected.
//
// When the connection limit is already reached Connect still returns true but
// issues no radio command; the attempt is only logged.
// A successful call resets the reconnect retry counter.
func (c *Central) Connect(rec *Record) bool {
	if rec == nil {
		return false
	}
	if c.discovered.len() == 0 {
		c.debug(logrus.Fields{"error": device.ErrNoDiscoveredDevice}, "Connect rejected")
		return false
	}
	target, ok := c.discovered.get(rec.ID())
	if !ok {
		c.debug(logrus.Fields{"device": rec.IDString(), "error": device.ErrNotDiscovered}, "Connect rejected")
		return false
	}
	if c.connected.has(target.ID()) {
		c.debug(logrus.Fields{"device": target.Identity().String(), "error": device.ErrAlreadyConnected}, "Connect rejected")
		return false
	}

	c.reconnectRetries = 0
	return c.connect(target)
}

// ConnectByName connects to the discovered device with the given display name.
func (c *Central) ConnectByName(name string) bool {
	rec, ok := c.DiscoveredByName(name)
	if !ok {
		c.debug(logrus.Fields{"name": name, "error": device.ErrNotDiscovered}, "Connect rejected")
		return false
	}
	return c.Connect(rec)
}

// connect is shared by Connect and the retry timers; callers have done the policy checks.
func (c *Central) connect(rec *Record) bool {
	c.setState(device.StateConnecting)
	c.lastAttempted = rec.ID()
	c.hasAttempted = true

	if c.connected.len() >= c.opts.ConnectionLimit {
		c.logger.WithFields(logrus.Fields{
			"device":    rec.Identity().String(),
			"connected": c.connected.len(),
			"limit":     c.opts.ConnectionLimit,
		}).Warn("Connection limit reached, connect not issued")
		return true
	}

	c.setRecordState(rec, device.StateConnecting)
	c.connected.put(rec)
	c.debug(logrus.Fields{"device": rec.Identity().String()}, "Connecting")
	c.radio.Connect(rec.handle)
	return true
}

// Connected confirms a connection and starts service discovery.
func (c *Central) Connected(id uuid.UUID) {
	rec, ok := c.discovered.get(id)
	if !ok {
		rec, ok = c.connected.get(id)
	}
	if !ok {
		c.logger.WithField("device", id.String()).Warn("Connected callback for unknown device, ignoring")
		return
	}

	name := rec.Name()
	if n, ok := c.discovered.nameFor(id); ok {
		name = n
	}
	c.connected.put(rec)
	c.connected.bind(id, name)

	c.setRecordState(rec, device.StateConnected)
	rec.resetGATT()
	c.failRetries = 0

	c.logger.WithField("device", rec.Identity().String()).Info("Connected")
	c.radio.DiscoverServices(rec.handle, c.opts.ServiceFilter)

	c.setState(device.StateConnected)
	if c.sink.Connected != nil {
		c.sink.Connected(rec.Identity())
	}
}

// ConnectFailed handles a failed connection attempt and schedules a retry while the budget lasts.
func (c *Central) ConnectFailed(id uuid.UUID, err error) {
	err = device.NormalizeError(err)
	if !c.discovered.has(id) && !c.connected.has(id) {
		c.debug(logrus.Fields{"device": id.String(), "error": err}, "Connect failure of an unknown device, ignoring")
		return
	}
	c.setState(device.StateFailedToConnect)
	c.connected.remove(id)
	if rec, ok := c.discovered.get(id); ok {
		c.setRecordState(rec, device.StateDisconnected)
	}

	fields := logrus.Fields{"device": id.String(), "error": err}
	if _, ok := c.purposeful[id]; ok {
		delete(c.purposeful, id)
		c.debug(fields, "Connect cancelled on request")
		return
	}

	policy := c.opts.Retry
	if c.failRetries < policy.MaxConnectRetries {
		fields["retry"] = c.failRetries + 1
		fields["max"] = policy.MaxConnectRetries
		fields["delay"] = policy.ConnectRetryDelay
		c.logger.WithFields(fields).Warn("Connect failed, retrying")
		c.scheduleRetry(RetryConnect, id, policy.ConnectRetryDelay)
		return
	}

	c.logger.WithFields(fields).Error("Connect failed, giving up")
	c.giveUp(&RetryError{Kind: RetryConnect, ID: id, Attempts: c.failRetries, Cause: err})
}

// Disconnect cancels the connection to id. It returns false when id is not connected.
// The next disconnect of id is treated as purposeful and never retried.
// A retry pending for id is cancelled either way; other devices keep theirs.
func (c *Central) Disconnect(id uuid.UUID) bool {
	retrying := c.cancelRetry(id)
	rec, ok := c.connected.get(id)
	if !ok {
		c.debug(logrus.Fields{"device": id.String(), "error": device.ErrNotConnected, "retry_cancelled": retrying}, "Disconnect ignored")
		return false
	}

	c.purposeful[id] = struct{}{}
	c.radio.CancelConnection(rec.handle)
	c.setState(device.StatePurposefulDisconnect)
	c.debug(logrus.Fields{"device": rec.Identity().String()}, "Disconnect requested")
	return true
}

// DisconnectAll cancels every connection without waiting for confirmation.
func (c *Central) DisconnectAll() {
	c.cancelRetries()
	if c.connected.len() == 0 {
		return
	}
	c.connected.each(func(rec *Record) {
		c.purposeful[rec.ID()] = struct{}{}
		c.radio.CancelConnection(rec.handle)
	})
	c.setState(device.StatePurposefulDisconnect)
	c.debug(logrus.Fields{"count": c.connected.len()}, "Disconnect requested for all devices")
}

// Disconnected removes id from the connected registry. Unexpected disconnects
// are retried through the reconnect budget.
func (c *Central) Disconnected(id uuid.UUID, err error) {
	err = device.NormalizeError(err)
	if !c.connected.has(id) {
		delete(c.purposeful, id)
		c.debug(logrus.Fields{"device": id.String()}, "Disconnect of a device that is not connected, ignoring")
		return
	}
	c.connected.remove(id)
	rec, known := c.discovered.get(id)

	fields := logrus.Fields{"device": id.String()}
	if known {
		fields["device"] = rec.Identity().String()
	}

	if _, ok := c.purposeful[id]; ok {
		delete(c.purposeful, id)
		if known {
			c.setRecordState(rec, device.StatePurposefulDisconnect)
		}
		c.logger.WithFields(fields).Info("Disconnected on request")
		return
	}

	if known {
		c.setRecordState(rec, device.StateDisconnected)
	}
	fields["error"] = err

	policy := c.opts.Retry
	if c.reconnectRetries < policy.MaxReconnectRetries {
		fields["retry"] = c.reconnectRetries + 1
		fields["max"] = policy.MaxReconnectRetries
		fields["delay"] = policy.ReconnectRetryDelay
		c.logger.WithFields(fields).Warn("Connection lost, reconnecting")
		c.setState(device.StateConnecting)
		c.scheduleRetry(RetryReconnect, id, policy.ReconnectRetryDelay)
		return
	}

	c.logger.WithFields(fields).Error("Connection lost, giving up")
	if known {
		c.setRecordState(rec, device.StateLostConnection)
	}
	c.setState(device.StateLostConnection)
	c.giveUp(&RetryError{Kind: RetryReconnect, ID: id, Attempts: c.reconnectRetries, Cause: err})
}

package central

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/device"
)

// StartSearch begins a new search. Both registries are emptied without
// disconnect notifications, since the radio drops existing connections on
// re-scan without reporting them. The unnamed-device counter, the repeat
// index and the connect retry counter restart from zero, and pending retry
// and search timers are invalidated.
func (c *Central) StartSearch(timeout time.Duration, repeat Repeat) error {
	if timeout <= 0 {
		return fmt.Errorf("search timeout must be positive, got %s", timeout)
	}

	c.cancelRetries()
	c.cancelSearchTimer()

	c.discovered.clear()
	c.rank.clear()
	c.connected.clear()
	c.purposeful = make(map[uuid.UUID]struct{})
	c.ClearWriteInterest()
	c.hasAttempted = false

	c.unknownIndex = 0
	c.repeatIndex = 0
	c.failRetries = 0
	c.repeat = repeat
	c.searching = true

	c.setState(device.StateScanning)
	c.radio.Scan(c.opts.ServiceFilter)

	epoch := c.searchEpoch
	c.searchTimer = c.clock.Every(timeout, func() { c.searchWindowExpired(epoch) })

	c.logger.WithFields(logrus.Fields{
		"timeout": timeout,
		"repeat":  repeat.String(),
		"filter":  c.opts.ServiceFilter,
	}).Info("Search started")
	return nil
}

// StopSearch ends the active search: the local state becomes idle, scanning stops
// and the search-expired hook runs. Without an active search it does nothing.
func (c *Central) StopSearch() {
	if !c.searching {
		c.debug(nil, "StopSearch: no active search")
		return
	}
	c.setIdle()
	c.endSearch()
	c.notifySearchExpired()
}

// Searching reports whether a search is in progress.
func (c *Central) Searching() bool {
	return c.searching
}

func (c *Central) searchWindowExpired(epoch uint64) {
	if epoch != c.searchEpoch {
		c.debug(logrus.Fields{"epoch": epoch}, "Ignoring stale search timer")
		return
	}

	c.setIdle()

	switch {
	case c.repeat.forever:
		c.rescan()
	case c.repeatIndex < c.repeat.times:
		c.repeatIndex++
		c.rescan()
	default:
		c.endSearch()
	}

	c.notifySearchExpired()
}

func (c *Central) rescan() {
	c.debug(logrus.Fields{"repeat": c.repeat.String(), "index": c.repeatIndex}, "Search window expired, scanning again")
	c.setState(device.StateScanning)
	c.radio.Scan(c.opts.ServiceFilter)
}

func (c *Central) setIdle() {
	if c.discovered.len() == 0 {
		c.setState(device.StateIdle)
	} else {
		c.setState(device.StateIdleWithDiscoveredDevices)
	}
}

func (c *Central) endSearch() {
	c.radio.StopScan()
	c.cancelSearchTimer()
	c.searching = false
	c.logger.WithField("discovered", c.discovered.len()).Info("Search finished")
}

func (c *Central) cancelSearchTimer() {
	c.searchEpoch++
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
}

func (c *Central) notifySearchExpired() {
	if c.sink.SearchExpired == nil {
		c.debug(nil, "Search expired, no hook registered")
		return
	}
	c.sink.SearchExpired()
}

package central

import (
	"github.com/google/uuid"
	"github.com/srg/blebehave/internal/device"
)

// State returns the local state.
func (c *Central) State() device.State {
	return c.state
}

// Discovered returns the discovered record of id.
func (c *Central) Discovered(id uuid.UUID) (*Record, bool) {
	return c.discovered.get(id)
}

// DiscoveredByName returns the discovered record currently bound to name.
func (c *Central) DiscoveredByName(name string) (*Record, bool) {
	id, ok := c.discovered.idFor(name)
	if !ok {
		return nil, false
	}
	return c.discovered.get(id)
}

func (c *Central) DiscoveredIDByName(name string) (uuid.UUID, bool) {
	return c.discovered.idFor(name)
}

func (c *Central) DiscoveredNameByID(id uuid.UUID) (string, bool) {
	return c.discovered.nameFor(id)
}

func (c *Central) ConnectedIDByName(name string) (uuid.UUID, bool) {
	return c.connected.idFor(name)
}

func (c *Central) ConnectedNameByID(id uuid.UUID) (string, bool) {
	return c.connected.nameFor(id)
}

// DeviceNames returns the names of discovered devices in discovery order.
func (c *Central) DeviceNames() []string {
	var names []string
	for _, id := range c.discovered.ids() {
		if name, ok := c.discovered.nameFor(id); ok {
			names = append(names, name)
		}
	}
	return names
}

func (c *Central) DiscoveredCount() int {
	return c.discovered.len()
}

// ConnectedIDs returns the identifiers in the connected registry, including
// attempts the radio has not confirmed yet.
func (c *Central) ConnectedIDs() []uuid.UUID {
	return c.connected.ids()
}

// AlreadyConnected reports whether id is in the connected registry.
func (c *Central) AlreadyConnected(id uuid.UUID) bool {
	return c.connected.has(id)
}

// IsConnected reports whether the radio confirmed the connection to id.
func (c *Central) IsConnected(id uuid.UUID) bool {
	rec, ok := c.connected.get(id)
	return ok && rec.state == device.StateConnected
}

// RSSI returns the last signal strength of a discovered device, or 0 when unknown.
func (c *Central) RSSI(id uuid.UUID) int {
	if rec, ok := c.discovered.get(id); ok {
		return rec.rssi
	}
	return 0
}

// DiscoveredRSSI maps every discovered identifier to its last signal strength.
func (c *Central) DiscoveredRSSI() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, c.discovered.len())
	c.discovered.each(func(rec *Record) {
		out[rec.ID()] = rec.rssi
	})
	return out
}

// RankedByRSSI returns the discovered identifiers and signal strengths, strongest first.
func (c *Central) RankedByRSSI() ([]uuid.UUID, []int) {
	ids, rssi, err := RankByRSSI(c.rank.ids, c.rank.rssi)
	if err != nil {
		c.logger.WithError(err).Error("Ranking arrays out of sync")
		return nil, nil
	}
	return ids, rssi
}

// LastAttempted returns the identifier of the most recent connect attempt in this search.
func (c *Central) LastAttempted() (uuid.UUID, bool) {
	return c.lastAttempted, c.hasAttempted
}

func (c *Central) Counters() RetryCounters {
	return RetryCounters{Connect: c.failRetries, Reconnect: c.reconnectRetries}
}

func (c *Central) record(id uuid.UUID) (*Record, error) {
	if rec, ok := c.discovered.get(id); ok {
		return rec, nil
	}
	if rec, ok := c.connected.get(id); ok {
		return rec, nil
	}
	return nil, device.ErrNotDiscovered
}

// SerialDataAvailable returns the number of buffered notification bytes of id.
func (c *Central) SerialDataAvailable(id uuid.UUID) int {
	rec, err := c.record(id)
	if err != nil {
		return 0
	}
	return rec.rxAvailable()
}

// ReadRx drains up to len(p) buffered bytes of id into p.
func (c *Central) ReadRx(id uuid.UUID, p []byte) (int, error) {
	rec, err := c.record(id)
	if err != nil {
		return 0, err
	}
	return rec.readRx(p), nil
}

// RxByte removes and returns the oldest buffered byte of id.
func (c *Central) RxByte(id uuid.UUID) (byte, bool) {
	rec, err := c.record(id)
	if err != nil {
		return 0, false
	}
	return rec.rxByte()
}

// ClearRx drops the buffered bytes of id.
func (c *Central) ClearRx(id uuid.UUID) {
	if rec, err := c.record(id); err == nil {
		rec.clearRx()
	}
}

// Package central implements the behavioral BLE central orchestrator.
//
// A Central drives a radio.Radio: it schedules scan windows, keeps the
// discovered and connected registries, enforces the connection limit, retries
// failed connects and unexpected disconnects with fixed delays, and walks the
// GATT pipeline (services, characteristics, descriptors) of each connection.
//
// Central is not safe for concurrent use. Every method, including the
// radio.Handler callbacks and timer fires, must run on one event loop; wrap
// the Central with radio.Serialize and create timers with the loop's Scheduler.
package central

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/eventloop"
	"github.com/srg/blebehave/internal/radio"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RetryCounters exposes the progress through both retry budgets.
type RetryCounters struct {
	Connect   int
	Reconnect int
}

// Central is the orchestrator. It implements radio.Handler.
type Central struct {
	radio  radio.Radio
	clock  eventloop.Scheduler
	opts   Options
	sink   Sink
	logger *logrus.Logger

	state device.State

	discovered   *registry
	rank         ranking
	connected    *registry
	unknownIndex int

	lastAttempted uuid.UUID
	hasAttempted  bool

	// write-interesting characteristics keyed by "service/characteristic"
	writeTargets *orderedmap.OrderedMap[string, radio.Characteristic]

	searching   bool
	repeat      Repeat
	repeatIndex int
	searchTimer eventloop.Timer
	searchEpoch uint64

	// pending retries keyed by device; retryEpoch numbers every arming
	retries          map[uuid.UUID]*pendingRetry
	retryEpoch       uint64
	failRetries      int
	reconnectRetries int

	// devices whose next disconnect was requested locally
	purposeful map[uuid.UUID]struct{}
}

var _ radio.Handler = (*Central)(nil)

// New creates an orchestrator. A nil logger is replaced with logrus.New().
func New(r radio.Radio, clock eventloop.Scheduler, opts Options, logger *logrus.Logger) *Central {
	if logger == nil {
		logger = logrus.New()
	}
	return &Central{
		radio:        r,
		clock:        clock,
		opts:         opts.normalized(),
		logger:       logger,
		state:        device.StateUnknown,
		discovered:   newRegistry(),
		connected:    newRegistry(),
		writeTargets: orderedmap.New[string, radio.Characteristic](),
		purposeful:   make(map[uuid.UUID]struct{}),
		retries:      make(map[uuid.UUID]*pendingRetry),
	}
}

// Configure replaces the configuration. It never touches the radio.
func (c *Central) Configure(opts Options) {
	c.opts = opts.normalized()
	c.debug(logrus.Fields{
		"service_filter":    c.opts.ServiceFilter,
		"connection_limit":  c.opts.ConnectionLimit,
		"connect_retries":   c.opts.Retry.MaxConnectRetries,
		"reconnect_retries": c.opts.Retry.MaxReconnectRetries,
	}, "Configured")
}

// Options returns the active configuration.
func (c *Central) Options() Options {
	return c.opts
}

// SetSink replaces the event sink.
func (c *Central) SetSink(s Sink) {
	c.sink = s
}

// AddDesiredService adds a service UUID to the scan and discovery filter.
func (c *Central) AddDesiredService(serviceUUID string) {
	u := device.NormalizeUUID(serviceUUID)
	if !device.ContainsUUID(c.opts.ServiceFilter, u) {
		c.opts.ServiceFilter = append(c.opts.ServiceFilter, u)
	}
}

// ClearDesiredServices empties the service filter, so scans match every device.
func (c *Central) ClearDesiredServices() {
	c.opts.ServiceFilter = nil
}

// ClearWriteInterest forgets every write-interesting characteristic discovered so far.
func (c *Central) ClearWriteInterest() {
	c.writeTargets = orderedmap.New[string, radio.Characteristic]()
}

// WriteInterest returns the write-interesting characteristics in discovery order.
func (c *Central) WriteInterest() []radio.Characteristic {
	out := make([]radio.Characteristic, 0, c.writeTargets.Len())
	for pair := c.writeTargets.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (c *Central) setState(s device.State) {
	if c.state == s {
		return
	}
	prev := c.state
	c.state = s
	c.debug(logrus.Fields{"from": prev.String(), "to": s.String()}, "Local state changed")
	if c.sink.StateChanged != nil {
		c.sink.StateChanged(s)
	}
}

// debug logs at debug level and mirrors the message to the sink when verbose.
func (c *Central) debug(fields logrus.Fields, msg string) {
	c.logger.WithFields(fields).Debug(msg)
	if c.opts.Verbose && c.sink.Debug != nil {
		c.sink.Debug(formatDebug(msg, fields))
	}
}

func formatDebug(msg string, fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

// StateChanged maps the platform power state onto the local state.
func (c *Central) StateChanged(state device.PowerState) {
	c.debug(logrus.Fields{"power": state.String()}, "Radio state changed")
	c.setState(state.State())
}

// PeripheralDiscovered creates or refreshes the record of p in the discovered registry.
func (c *Central) PeripheralDiscovered(p radio.Peripheral, rssi int, adv device.AdvertisementData) {
	id := p.ID()
	rec, existed := c.discovered.get(id)

	name := p.Name()
	if name == "" {
		if existed {
			name = rec.Name()
		} else {
			name = device.FallbackName(c.unknownIndex)
			c.unknownIndex++
		}
	}

	if existed {
		rec.handle = p
		rec.rssi = rssi
		rec.identity.Name = name
	} else {
		rec = newRecord(p, name, rssi, c.opts.RxBufferSize)
	}

	if adv != nil {
		rec.connectable = adv.Connectable()
		if c.opts.CaptureAdvertisements {
			rec.adv = device.CaptureAdvertisement(adv)
		}
	}

	c.discovered.put(rec)
	c.rank.observe(id, rssi)
	if c.connected.has(id) {
		c.connected.bind(id, name)
	}

	c.debug(logrus.Fields{"device": rec.Identity().String(), "rssi": rssi, "rediscovered": existed}, "Discovered peripheral")
}

// ValueUpdated forwards notification bytes to the sink and buffers them for connected devices.
func (c *Central) ValueUpdated(id uuid.UUID, char radio.Characteristic, data []byte, err error) {
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"device":         id.String(),
			"characteristic": char.UUID(),
			"error":          err,
		}).Warn("Value update failed")
		return
	}

	if rec, ok := c.connected.get(id); ok {
		if dropped := rec.appendRx(data); dropped > 0 {
			c.logger.WithFields(logrus.Fields{
				"device":  rec.Identity().String(),
				"dropped": dropped,
			}).Warn("Receive buffer full, dropping data")
		}
	}

	if c.sink.Notification != nil {
		c.sink.Notification(id, data)
	}
	if c.sink.NotificationText != nil && utf8.Valid(data) {
		c.sink.NotificationText(id, string(data))
	}
}

func (c *Central) setRecordState(rec *Record, s device.State) {
	if !rec.setState(s) {
		c.logger.WithFields(logrus.Fields{"device": rec.IDString(), "state": s.String()}).Error("Refusing local state on a device record")
	}
}

// Close invalidates every pending search and retry timer.
func (c *Central) Close() {
	c.cancelRetries()
	c.cancelSearchTimer()
	c.searching = false
}

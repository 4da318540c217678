// Package goble implements radio.Radio on top of the go-ble stack.
//
// Every command returns immediately. Blocking go-ble calls run on named
// goroutines and report back through the radio.Handler, so the handler must
// tolerate callbacks from arbitrary goroutines (wrap it with radio.Serialize).
package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/groutine"
	"github.com/srg/blebehave/internal/radio"
)

// Radio drives a go-ble Device.
type Radio struct {
	dev     Device
	handler radio.Handler
	logger  *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc

	scanMu     sync.Mutex
	scanCancel context.CancelFunc
	scanDone   chan struct{}

	peripherals *hashmap.Map[string, *peripheral]
	// linkMu serializes link insertion and removal; lookups go straight to the map
	linkMu sync.Mutex
	links  *hashmap.Map[string, *link]
}

var _ radio.Radio = (*Radio)(nil)

// New creates the platform device through DeviceFactory.
func New(logger *logrus.Logger) (*Radio, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Radio{
		dev:         dev,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		peripherals: hashmap.New[string, *peripheral](),
		links:       hashmap.New[string, *link](),
	}, nil
}

// Start installs the callback handler and reports the radio as powered on.
// Commands issued before Start are dropped.
func (r *Radio) Start(h radio.Handler) {
	r.handler = h
	r.report("ble-power", func() { h.StateChanged(device.PowerOn) })
}

// Close stops scanning and tears down every link.
func (r *Radio) Close() {
	r.StopScan()
	r.links.Range(func(_ string, l *link) bool {
		l.close()
		return true
	})
	r.cancel()
}

// report runs fn on its own goroutine so the caller never waits on the handler.
func (r *Radio) report(name string, fn func()) {
	groutine.Go(r.ctx, name, func(context.Context) { fn() })
}

func (r *Radio) ready() bool {
	if r.handler == nil {
		r.logger.Warn("Radio command issued before Start, dropping")
		return false
	}
	return true
}

// Scan starts a new scan. Established links survive it; a later Connect for one
// of them reports Connected again instead of dialing.
func (r *Radio) Scan(serviceFilter []string) {
	if !r.ready() {
		return
	}
	filter := device.NormalizeUUIDs(serviceFilter)

	r.scanMu.Lock()
	if r.scanCancel != nil {
		r.scanCancel()
	}
	ctx, cancel := context.WithCancel(r.ctx)
	prev := r.scanDone
	done := make(chan struct{})
	r.scanCancel, r.scanDone = cancel, done
	r.scanMu.Unlock()

	r.logger.WithField("filter", filter).Debug("Starting BLE scan...")

	groutine.Go(ctx, "ble-scan", func(ctx context.Context) {
		defer close(done)
		if prev != nil {
			<-prev
		}
		err := r.dev.Scan(ctx, false, func(adv ble.Advertisement) {
			if !advertises(adv, filter) {
				return
			}
			p := r.peripheralFor(adv)
			r.handler.PeripheralDiscovered(p, adv.RSSI(), newAdvertisement(adv))
		})
		if err == nil || ctx.Err() != nil || errors.Is(err, context.Canceled) {
			r.logger.Debug("BLE scan stopped")
			return
		}
		err = NormalizeError(err)
		r.logger.WithField("error", err).Warn("BLE scan failed")
		if errors.Is(err, device.ErrBluetoothOff) {
			r.handler.StateChanged(device.PowerOff)
		}
	})
}

func (r *Radio) StopScan() {
	r.scanMu.Lock()
	defer r.scanMu.Unlock()
	if r.scanCancel != nil {
		r.scanCancel()
		r.scanCancel = nil
	}
}

func (r *Radio) peripheralFor(adv ble.Advertisement) *peripheral {
	addr := adv.Addr()
	id := IdentifierFor(addr.String())
	p, _ := r.peripherals.GetOrInsert(id.String(), &peripheral{id: id, addr: addr})
	p.setName(adv.LocalName())
	return p
}

func (r *Radio) Connect(p radio.Peripheral) {
	if !r.ready() {
		return
	}
	id := p.ID()
	key := id.String()

	per, ok := r.peripherals.Get(key)
	if !ok {
		r.report("ble-connect", func() {
			r.handler.ConnectFailed(id, &device.NotFoundError{Resource: "device", IDs: []string{key}})
		})
		return
	}

	r.linkMu.Lock()
	l := newLink(r.ctx, id)
	existing, loaded := r.links.GetOrInsert(key, l)
	r.linkMu.Unlock()
	if loaded {
		l.cancel()
		if existing.dialed.Load() {
			r.logger.WithField("id", key).Debug("Connect on an established link, reporting it again")
			r.report("ble-connect", func() { r.handler.Connected(id) })
			return
		}
		r.logger.WithField("id", key).Debug("Connect ignored, dial already in progress")
		return
	}

	groutine.Go(l.ctx, "ble-link", func(context.Context) { r.runLink(per, l) })
}

// removeLink deletes l from the table unless a newer link took its place.
func (r *Radio) removeLink(l *link) {
	r.linkMu.Lock()
	defer r.linkMu.Unlock()
	if cur, ok := r.links.Get(l.id.String()); ok && cur == l {
		r.links.Del(l.id.String())
	}
}

func (r *Radio) runLink(per *peripheral, l *link) {
	log := r.logger.WithField("id", l.id)
	log.WithField("address", per.addr.String()).Debug("Dialing BLE device...")

	client, err := r.dev.Dial(l.ctx, per.addr)
	if err == nil && l.ctx.Err() != nil {
		_ = client.CancelConnection()
		err = l.ctx.Err()
	}
	if err != nil {
		r.removeLink(l)
		if l.cancelled.Load() {
			err = fmt.Errorf("connection cancelled: %w", err)
		}
		log.WithField("error", err).Debug("Failed to dial BLE device")
		r.handler.ConnectFailed(l.id, NormalizeError(err))
		return
	}

	l.dialed.Store(true)
	log.Info("BLE device connected")
	r.handler.Connected(l.id)

	disconnected := client.Disconnected()
	for {
		select {
		case <-l.wake:
			for _, op := range l.drain() {
				if l.ctx.Err() != nil {
					break
				}
				op(client)
			}
		case <-disconnected:
			r.removeLink(l)
			log.Warn("BLE device reported disconnection")
			r.handler.Disconnected(l.id, device.ErrNotConnected)
			return
		case <-l.ctx.Done():
			r.removeLink(l)
			if err := client.CancelConnection(); err != nil {
				log.WithField("error", err).Warn("BLE device disconnected with errors")
			}
			if l.cancelled.Load() {
				r.handler.Disconnected(l.id, nil)
			}
			return
		}
	}
}

func (r *Radio) CancelConnection(p radio.Peripheral) {
	l, ok := r.links.Get(p.ID().String())
	if !ok {
		r.logger.WithField("id", p.ID()).Debug("CancelConnection: no link")
		return
	}
	l.close()
}

// enqueue hands op to the link goroutine of p.
func (r *Radio) enqueue(p radio.Peripheral, command string, op func(Client)) {
	l, ok := r.links.Get(p.ID().String())
	if !ok {
		r.logger.WithFields(logrus.Fields{"id": p.ID(), "command": command}).Warn("No link for peripheral, dropping command")
		return
	}
	l.push(op)
}

func (r *Radio) DiscoverServices(p radio.Peripheral, filter []string) {
	id := p.ID()
	r.enqueue(p, "DiscoverServices", func(c Client) {
		uuids, invalid := parseFilter(filter)
		if len(invalid) > 0 {
			r.logger.WithField("uuids", invalid).Warn("Ignoring malformed service filter entries")
		}
		found, err := c.DiscoverServices(uuids)
		services := make([]radio.Service, 0, len(found))
		for _, s := range found {
			services = append(services, newService(s))
		}
		r.handler.ServicesDiscovered(id, services, NormalizeError(err))
	})
}

func (r *Radio) DiscoverCharacteristics(p radio.Peripheral, svc radio.Service) {
	id := p.ID()
	r.enqueue(p, "DiscoverCharacteristics", func(c Client) {
		s, err := asService(svc)
		if err != nil {
			r.handler.CharacteristicsDiscovered(id, svc, nil, err)
			return
		}
		found, err := c.DiscoverCharacteristics(nil, s.svc)
		chars := make([]radio.Characteristic, 0, len(found))
		for _, ch := range found {
			chars = append(chars, newCharacteristic(ch, s.uuid))
		}
		r.handler.CharacteristicsDiscovered(id, s, chars, NormalizeError(err))
	})
}

func (r *Radio) DiscoverDescriptors(p radio.Peripheral, char radio.Characteristic) {
	id := p.ID()
	r.enqueue(p, "DiscoverDescriptors", func(c Client) {
		ch, err := asCharacteristic(char)
		if err != nil {
			r.handler.DescriptorsDiscovered(id, char, nil, err)
			return
		}
		found, err := c.DiscoverDescriptors(nil, ch.char)
		descs := make([]radio.Descriptor, 0, len(found))
		for _, d := range found {
			descs = append(descs, &descriptor{uuid: device.NormalizeUUID(d.UUID.String())})
		}
		r.handler.DescriptorsDiscovered(id, ch, descs, NormalizeError(err))
	})
}

// SetNotify subscribes with notifications when supported and falls back to indications.
// Characteristics supporting neither are skipped.
func (r *Radio) SetNotify(p radio.Peripheral, char radio.Characteristic, enabled bool) {
	id := p.ID()
	r.enqueue(p, "SetNotify", func(c Client) {
		ch, err := asCharacteristic(char)
		if err != nil {
			r.logger.WithField("error", err).Warn("SetNotify skipped")
			return
		}
		props := ch.Properties()
		if !props.Has(radio.PropNotify) && !props.Has(radio.PropIndicate) {
			r.logger.WithFields(logrus.Fields{
				"id":        id,
				"char_uuid": ch.uuid,
			}).Debug("Characteristic supports neither notify nor indicate, skipping subscription")
			return
		}
		ind := !props.Has(radio.PropNotify)

		if !enabled {
			if err := NormalizeError(c.Unsubscribe(ch.char, ind)); err != nil {
				r.logger.WithFields(logrus.Fields{"char_uuid": ch.uuid, "error": err}).Warn("Failed to unsubscribe from characteristic")
			}
			return
		}

		err = c.Subscribe(ch.char, ind, func(data []byte) {
			r.handler.ValueUpdated(id, ch, data, nil)
		})
		if err != nil {
			r.handler.ValueUpdated(id, ch, nil, fmt.Errorf("subscribe %s: %w", ch.uuid, NormalizeError(err)))
			return
		}
		r.logger.WithFields(logrus.Fields{
			"service_uuid": ch.service,
			"char_uuid":    ch.uuid,
			"indicate":     ind,
		}).Debug("Subscribed to characteristic notifications")
	})
}

func (r *Radio) WriteValue(p radio.Peripheral, char radio.Characteristic, data []byte, withResponse bool) {
	payload := append([]byte(nil), data...)
	r.enqueue(p, "WriteValue", func(c Client) {
		ch, err := asCharacteristic(char)
		if err != nil {
			r.logger.WithField("error", err).Warn("WriteValue skipped")
			return
		}
		if err := c.WriteCharacteristic(ch.char, payload, !withResponse); err != nil {
			r.logger.WithFields(logrus.Fields{
				"char_uuid": ch.uuid,
				"bytes":     len(payload),
				"error":     NormalizeError(err),
			}).Warn("Failed to write characteristic")
		}
	})
}

package central

import (
	"errors"

	"github.com/google/uuid"
	"github.com/smallnest/ringbuffer"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/radio"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type serviceNode struct {
	service         radio.Service
	characteristics *orderedmap.OrderedMap[string, *characteristicNode]
}

type characteristicNode struct {
	characteristic radio.Characteristic
	descriptors    *orderedmap.OrderedMap[string, radio.Descriptor]
}

// Record is the orchestrator's view of one discovered peripheral.
// It is shared by the discovered and connected registries and is only
// mutated by the orchestrator on the event loop; callers get read access.
type Record struct {
	identity    device.Identity
	handle      radio.Peripheral
	rssi        int
	state       device.State
	connectable bool
	adv         *device.Advertisement

	services *orderedmap.OrderedMap[string, *serviceNode]
	rx       *ringbuffer.RingBuffer
}

func newRecord(p radio.Peripheral, name string, rssi int, rxSize int) *Record {
	return &Record{
		identity:    device.Identity{ID: p.ID(), Name: name},
		handle:      p,
		rssi:        rssi,
		state:       device.StateDisconnected,
		connectable: true,
		services:    orderedmap.New[string, *serviceNode](),
		rx:          ringbuffer.New(rxSize),
	}
}

func (r *Record) ID() uuid.UUID {
	return r.identity.ID
}

// IDString returns the canonical textual form of the identifier.
func (r *Record) IDString() string {
	return r.identity.ID.String()
}

// Name returns the advertised name or the generated Unknown_<N> fallback.
func (r *Record) Name() string {
	return r.identity.Name
}

func (r *Record) Identity() device.Identity {
	return r.identity
}

// Handle returns the radio handle used for every command addressed to this device.
func (r *Record) Handle() radio.Peripheral {
	return r.handle
}

func (r *Record) RSSI() int {
	return r.rssi
}

// State returns the per-device behavioral state.
func (r *Record) State() device.State {
	return r.state
}

// setState moves the record to s. Local-only states are refused.
func (r *Record) setState(s device.State) bool {
	if !s.IsRecordState() {
		return false
	}
	r.state = s
	return true
}

// Connectable reports the advertised connectable flag; true when it was never advertised.
func (r *Record) Connectable() bool {
	return r.connectable
}

// Advertisement returns the captured advertisement, or nil when capture is disabled.
func (r *Record) Advertisement() *device.Advertisement {
	return r.adv
}

// Services returns the discovered services in discovery order.
func (r *Record) Services() []radio.Service {
	out := make([]radio.Service, 0, r.services.Len())
	for pair := r.services.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.service)
	}
	return out
}

// Characteristics returns the characteristics of the given service in discovery order,
// or nil when the service is unknown.
func (r *Record) Characteristics(serviceUUID string) []radio.Characteristic {
	svc, ok := r.services.Get(device.NormalizeUUID(serviceUUID))
	if !ok {
		return nil
	}
	out := make([]radio.Characteristic, 0, svc.characteristics.Len())
	for pair := svc.characteristics.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.characteristic)
	}
	return out
}

// AllCharacteristics returns every discovered characteristic, service by service.
func (r *Record) AllCharacteristics() []radio.Characteristic {
	var out []radio.Characteristic
	for pair := r.services.Oldest(); pair != nil; pair = pair.Next() {
		for c := pair.Value.characteristics.Oldest(); c != nil; c = c.Next() {
			out = append(out, c.Value.characteristic)
		}
	}
	return out
}

// Descriptors returns the descriptors of a characteristic in discovery order.
func (r *Record) Descriptors(serviceUUID, charUUID string) []radio.Descriptor {
	char := r.characteristic(device.NormalizeUUID(serviceUUID), device.NormalizeUUID(charUUID))
	if char == nil {
		return nil
	}
	out := make([]radio.Descriptor, 0, char.descriptors.Len())
	for pair := char.descriptors.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (r *Record) characteristic(svcUUID, charUUID string) *characteristicNode {
	svc, ok := r.services.Get(svcUUID)
	if !ok {
		return nil
	}
	char, ok := svc.characteristics.Get(charUUID)
	if !ok {
		return nil
	}
	return char
}

// addService appends svc; a rediscovered service keeps its position and children.
func (r *Record) addService(svc radio.Service) {
	key := device.NormalizeUUID(svc.UUID())
	if node, ok := r.services.Get(key); ok {
		node.service = svc
		return
	}
	r.services.Set(key, &serviceNode{
		service:         svc,
		characteristics: orderedmap.New[string, *characteristicNode](),
	})
}

// addCharacteristic reports false when the owning service was never discovered.
func (r *Record) addCharacteristic(svcUUID string, char radio.Characteristic) bool {
	svc, ok := r.services.Get(device.NormalizeUUID(svcUUID))
	if !ok {
		return false
	}
	key := device.NormalizeUUID(char.UUID())
	if node, ok := svc.characteristics.Get(key); ok {
		node.characteristic = char
		return true
	}
	svc.characteristics.Set(key, &characteristicNode{
		characteristic: char,
		descriptors:    orderedmap.New[string, radio.Descriptor](),
	})
	return true
}

func (r *Record) addDescriptor(char radio.Characteristic, desc radio.Descriptor) bool {
	node := r.characteristic(device.NormalizeUUID(char.ServiceUUID()), device.NormalizeUUID(char.UUID()))
	if node == nil {
		return false
	}
	node.descriptors.Set(device.NormalizeUUID(desc.UUID()), desc)
	return true
}

// resetGATT drops the discovered tree before a fresh discovery pass.
func (r *Record) resetGATT() {
	r.services = orderedmap.New[string, *serviceNode]()
}

// appendRx stores data in the receive buffer and returns the number of bytes dropped.
// A full buffer keeps its oldest bytes; the ring buffer writes only what fits.
func (r *Record) appendRx(data []byte) int {
	n, _ := r.rx.Write(data)
	return len(data) - n
}

func (r *Record) rxAvailable() int {
	return r.rx.Length()
}

func (r *Record) readRx(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	n, err := r.rx.TryRead(p)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return 0
	}
	return n
}

func (r *Record) rxByte() (byte, bool) {
	b, err := r.rx.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

func (r *Record) clearRx() {
	r.rx.Reset()
}

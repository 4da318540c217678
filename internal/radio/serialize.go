package radio

import (
	"github.com/google/uuid"
	"github.com/srg/blebehave/internal/device"
)

// Poster queues fn for execution on the event loop goroutine.
// It reports false when the loop no longer accepts work.
type Poster interface {
	Post(fn func()) bool
}

// serialized forwards each callback to the wrapped handler through a Poster,
// so callbacks raised on radio goroutines run on the event loop.
type serialized struct {
	poster Poster
	inner  Handler
}

// Serialize returns a Handler that delivers every callback to h via poster.
func Serialize(poster Poster, h Handler) Handler {
	return &serialized{poster: poster, inner: h}
}

func (s *serialized) StateChanged(state device.PowerState) {
	s.poster.Post(func() { s.inner.StateChanged(state) })
}

func (s *serialized) PeripheralDiscovered(p Peripheral, rssi int, adv device.AdvertisementData) {
	s.poster.Post(func() { s.inner.PeripheralDiscovered(p, rssi, adv) })
}

func (s *serialized) Connected(id uuid.UUID) {
	s.poster.Post(func() { s.inner.Connected(id) })
}

func (s *serialized) ConnectFailed(id uuid.UUID, err error) {
	s.poster.Post(func() { s.inner.ConnectFailed(id, err) })
}

func (s *serialized) Disconnected(id uuid.UUID, err error) {
	s.poster.Post(func() { s.inner.Disconnected(id, err) })
}

func (s *serialized) ServicesDiscovered(id uuid.UUID, services []Service, err error) {
	s.poster.Post(func() { s.inner.ServicesDiscovered(id, services, err) })
}

func (s *serialized) CharacteristicsDiscovered(id uuid.UUID, svc Service, chars []Characteristic, err error) {
	s.poster.Post(func() { s.inner.CharacteristicsDiscovered(id, svc, chars, err) })
}

func (s *serialized) DescriptorsDiscovered(id uuid.UUID, char Characteristic, descs []Descriptor, err error) {
	s.poster.Post(func() { s.inner.DescriptorsDiscovered(id, char, descs, err) })
}

func (s *serialized) ValueUpdated(id uuid.UUID, char Characteristic, data []byte, err error) {
	buf := append([]byte(nil), data...)
	s.poster.Post(func() { s.inner.ValueUpdated(id, char, buf, err) })
}

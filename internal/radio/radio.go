// Package radio defines the abstract BLE radio the central orchestrator drives.
//
// A Radio accepts commands and never blocks: every result is delivered later
// through the Handler it was constructed with. Implementations serialize
// per-peripheral events in pipeline order (discovery, connect, services,
// characteristics, descriptors, notifications) but give no ordering guarantee
// across peripherals.
package radio

import (
	"github.com/google/uuid"
	"github.com/srg/blebehave/internal/device"
)

// Peripheral is the opaque radio handle of a remote device.
type Peripheral interface {
	ID() uuid.UUID
	// Name returns the advertised name, or "" when the device advertises none.
	Name() string
}

// Service is a discovered GATT service.
type Service interface {
	UUID() string
}

// Property is the characteristic property bit set, using the GATT encoding.
type Property uint8

const (
	PropBroadcast Property = 1 << iota
	PropRead
	PropWriteWithoutResponse
	PropWrite
	PropNotify
	PropIndicate
	PropSignedWrite
	PropExtended
)

// Has reports whether all bits of q are present in p.
func (p Property) Has(q Property) bool {
	return p&q == q
}

// Characteristic is a discovered GATT characteristic.
type Characteristic interface {
	UUID() string
	// ServiceUUID returns the normalized UUID of the owning service.
	ServiceUUID() string
	Properties() Property
}

// Descriptor is a discovered GATT descriptor.
type Descriptor interface {
	UUID() string
}

// Radio is the command side of the platform BLE stack.
type Radio interface {
	Scan(serviceFilter []string)
	StopScan()
	Connect(p Peripheral)
	CancelConnection(p Peripheral)
	// DiscoverServices discovers the services of p; an empty filter means all services.
	DiscoverServices(p Peripheral, filter []string)
	DiscoverCharacteristics(p Peripheral, svc Service)
	DiscoverDescriptors(p Peripheral, char Characteristic)
	SetNotify(p Peripheral, char Characteristic, enabled bool)
	WriteValue(p Peripheral, char Characteristic, data []byte, withResponse bool)
}

// Handler receives the asynchronous radio callbacks.
type Handler interface {
	StateChanged(state device.PowerState)
	PeripheralDiscovered(p Peripheral, rssi int, adv device.AdvertisementData)
	Connected(id uuid.UUID)
	ConnectFailed(id uuid.UUID, err error)
	Disconnected(id uuid.UUID, err error)
	ServicesDiscovered(id uuid.UUID, services []Service, err error)
	CharacteristicsDiscovered(id uuid.UUID, svc Service, chars []Characteristic, err error)
	DescriptorsDiscovered(id uuid.UUID, char Characteristic, descs []Descriptor, err error)
	ValueUpdated(id uuid.UUID, char Characteristic, data []byte, err error)
}

package testutils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/radio"
)

// FakePeripheral is a static radio.Peripheral.
type FakePeripheral struct {
	Identifier uuid.UUID
	LocalName  string
}

func (p *FakePeripheral) ID() uuid.UUID { return p.Identifier }
func (p *FakePeripheral) Name() string { return p.LocalName }

// FakeService is a static radio.Service.
type FakeService struct {
	ServiceUUID string
}

func (s *FakeService) UUID() string { return s.ServiceUUID }

// FakeCharacteristic is a static radio.Characteristic.
type FakeCharacteristic struct {
	CharUUID string
	Service  string
	Props    radio.Property
}

func (c *FakeCharacteristic) UUID() string { return c.CharUUID }
func (c *FakeCharacteristic) ServiceUUID() string { return c.Service }
func (c *FakeCharacteristic) Properties() radio.Property { return c.Props }

// FakeDescriptor is a static radio.Descriptor.
type FakeDescriptor struct {
	DescUUID string
}

func (d *FakeDescriptor) UUID() string { return d.DescUUID }

// NewPeripheral creates a fake peripheral with a random identifier.
func NewPeripheral(name string) *FakePeripheral {
	return &FakePeripheral{Identifier: uuid.New(), LocalName: name}
}

// CharacteristicConfig represents a BLE characteristic configuration for mocking
type CharacteristicConfig struct {
	UUID        string   `json:"uuid"`
	Properties  string   `json:"properties,omitempty"` // e.g., "read,write,notify"
	Descriptors []string `json:"descriptors,omitempty"`
}

// ServiceConfig represents a BLE service configuration for mocking
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// DeviceProfileConfig represents the complete device profile for mocking
type DeviceProfileConfig struct {
	Services []ServiceConfig `json:"services"`
}

// Profile is the built GATT tree of a fake peripheral, in discovery order.
type Profile struct {
	Services        []radio.Service
	Characteristics map[string][]radio.Characteristic // keyed by service UUID
	Descriptors     map[string][]radio.Descriptor     // keyed by "service/characteristic"
}

// Service returns the service with the given UUID, or nil.
func (p *Profile) Service(uuid string) radio.Service {
	for _, s := range p.Services {
		if s.UUID() == device.NormalizeUUID(uuid) {
			return s
		}
	}
	return nil
}

// Characteristic returns the characteristic charUUID of service svcUUID, or nil.
func (p *Profile) Characteristic(svcUUID, charUUID string) radio.Characteristic {
	for _, c := range p.Characteristics[device.NormalizeUUID(svcUUID)] {
		if c.UUID() == device.NormalizeUUID(charUUID) {
			return c
		}
	}
	return nil
}

// DescriptorsOf returns the descriptors of char.
func (p *Profile) DescriptorsOf(char radio.Characteristic) []radio.Descriptor {
	return p.Descriptors[char.ServiceUUID()+"/"+char.UUID()]
}

// PeripheralDeviceBuilder builds fake GATT profiles with services, characteristics and descriptors
type PeripheralDeviceBuilder struct {
	profile DeviceProfileConfig
}

// NewPeripheralDeviceBuilder creates a new peripheral device builder
func NewPeripheralDeviceBuilder() *PeripheralDeviceBuilder {
	return &PeripheralDeviceBuilder{
		profile: DeviceProfileConfig{
			Services: []ServiceConfig{},
		},
	}
}

// WithService adds a service to the device profile
func (b *PeripheralDeviceBuilder) WithService(uuid string) *PeripheralDeviceBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{
		UUID:            uuid,
		Characteristics: []CharacteristicConfig{},
	})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralDeviceBuilder) WithCharacteristic(uuid, properties string, descriptors ...string) *PeripheralDeviceBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}

	last := len(b.profile.Services) - 1
	b.profile.Services[last].Characteristics = append(b.profile.Services[last].Characteristics, CharacteristicConfig{
		UUID:        uuid,
		Properties:  properties,
		Descriptors: descriptors,
	})
	return b
}

// FromJSON fills the device profile from JSON
func (b *PeripheralDeviceBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralDeviceBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var config DeviceProfileConfig
	if err := json.Unmarshal([]byte(jsonStr), &config); err != nil {
		panic(fmt.Sprintf("PeripheralDeviceBuilder.FromJSON: failed to unmarshal: %v", err))
	}

	b.profile = config
	return b
}

// ParseProperties converts a comma separated property string to radio.Property flags.
// An empty string means read,write,notify.
func ParseProperties(props string) radio.Property {
	if strings.TrimSpace(props) == "" {
		return radio.PropRead | radio.PropWrite | radio.PropNotify
	}

	var property radio.Property
	for _, p := range strings.Split(props, ",") {
		switch strings.TrimSpace(strings.ToLower(p)) {
		case "broadcast":
			property |= radio.PropBroadcast
		case "read":
			property |= radio.PropRead
		case "write-without-response", "writenr":
			property |= radio.PropWriteWithoutResponse
		case "write":
			property |= radio.PropWrite
		case "notify":
			property |= radio.PropNotify
		case "indicate":
			property |= radio.PropIndicate
		default:
			panic(fmt.Sprintf("ParseProperties: unknown property %q", p))
		}
	}
	return property
}

// Build creates the fake GATT profile. UUIDs are normalized the way radios report them.
func (b *PeripheralDeviceBuilder) Build() *Profile {
	p := &Profile{
		Characteristics: make(map[string][]radio.Characteristic),
		Descriptors:     make(map[string][]radio.Descriptor),
	}

	for _, svcConfig := range b.profile.Services {
		svcUUID := device.NormalizeUUID(svcConfig.UUID)
		p.Services = append(p.Services, &FakeService{ServiceUUID: svcUUID})

		for _, charConfig := range svcConfig.Characteristics {
			char := &FakeCharacteristic{
				CharUUID: device.NormalizeUUID(charConfig.UUID),
				Service:  svcUUID,
				Props:    ParseProperties(charConfig.Properties),
			}
			p.Characteristics[svcUUID] = append(p.Characteristics[svcUUID], char)

			key := svcUUID + "/" + char.CharUUID
			for _, d := range charConfig.Descriptors {
				p.Descriptors[key] = append(p.Descriptors[key], &FakeDescriptor{DescUUID: device.NormalizeUUID(d)})
			}
		}
	}
	return p
}

package testutils

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/srg/blebehave/internal/device"
)

// FakeAdvertisement is a static device.AdvertisementData.
type FakeAdvertisement struct {
	Name        string
	Manufacture []byte
	SvcData     []device.ServiceData
	Svcs        []string
	Overflow    []string
	Solicited   []string
	TxPower     int
	IsConnect   bool
}

func (a *FakeAdvertisement) LocalName() string { return a.Name }
func (a *FakeAdvertisement) ManufacturerData() []byte { return a.Manufacture }
func (a *FakeAdvertisement) ServiceData() []device.ServiceData { return a.SvcData }
func (a *FakeAdvertisement) Services() []string { return a.Svcs }
func (a *FakeAdvertisement) OverflowService() []string { return a.Overflow }
func (a *FakeAdvertisement) TxPowerLevel() int { return a.TxPower }
func (a *FakeAdvertisement) Connectable() bool { return a.IsConnect }
func (a *FakeAdvertisement) SolicitedService() []string { return a.Solicited }

// AdvertisementBuilder builds fake advertisements for testing.
// Fields that are never set keep radio defaults: connectable, no tx power.
type AdvertisementBuilder struct {
	name        string
	services    []string
	overflow    []string
	solicited   []string
	manufData   []byte
	serviceData map[string][]byte
	txPower     *int
	connectable bool
}

// NewAdvertisementBuilder creates a new AdvertisementBuilder with default values.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{
		serviceData: make(map[string][]byte),
		connectable: true,
	}
}

// WithName sets the local name for the advertisement.
func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.name = name
	return b
}

// WithServices adds service UUIDs to the advertisement.
func (b *AdvertisementBuilder) WithServices(uuids ...string) *AdvertisementBuilder {
	b.services = append(b.services, uuids...)
	return b
}

func (b *AdvertisementBuilder) WithOverflowServices(uuids ...string) *AdvertisementBuilder {
	b.overflow = append(b.overflow, uuids...)
	return b
}

func (b *AdvertisementBuilder) WithSolicitedServices(uuids ...string) *AdvertisementBuilder {
	b.solicited = append(b.solicited, uuids...)
	return b
}

// WithManufacturerData sets the manufacturer-specific data.
func (b *AdvertisementBuilder) WithManufacturerData(data []byte) *AdvertisementBuilder {
	b.manufData = data
	return b
}

// WithServiceData adds service-specific data for the given service UUID.
func (b *AdvertisementBuilder) WithServiceData(uuid string, data []byte) *AdvertisementBuilder {
	b.serviceData[uuid] = data
	return b
}

// WithTxPower sets the transmission power level.
func (b *AdvertisementBuilder) WithTxPower(power int) *AdvertisementBuilder {
	b.txPower = &power
	return b
}

// WithConnectable sets whether the device accepts connections.
func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.connectable = c
	return b
}

// FromJSON fills builder fields from a JSON string with format support.
// Panics on invalid JSON as this is intended for test data setup.
func (b *AdvertisementBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *AdvertisementBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var data struct {
		Name              *string           `json:"name"`
		Services          []string          `json:"services"`
		OverflowServices  []string          `json:"overflowServices"`
		SolicitedServices []string          `json:"solicitedServices"`
		ManufacturerData  []byte            `json:"manufacturerData"`
		ServiceData       map[string]string `json:"serviceData"`
		TxPower           *int              `json:"txPower"`
		Connectable       *bool             `json:"connectable"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		panic(fmt.Sprintf("FromJSON: failed to unmarshal advertisement: %v", err))
	}

	if data.Name != nil {
		b.name = *data.Name
	}
	b.services = append(b.services, data.Services...)
	b.overflow = append(b.overflow, data.OverflowServices...)
	b.solicited = append(b.solicited, data.SolicitedServices...)
	if data.ManufacturerData != nil {
		b.manufData = data.ManufacturerData
	}
	for k, v := range data.ServiceData {
		b.serviceData[k] = []byte(v)
	}
	if data.TxPower != nil {
		b.txPower = data.TxPower
	}
	if data.Connectable != nil {
		b.connectable = *data.Connectable
	}
	return b
}

// Build creates the FakeAdvertisement. Service data is emitted in UUID order.
func (b *AdvertisementBuilder) Build() *FakeAdvertisement {
	adv := &FakeAdvertisement{
		Name:        b.name,
		Manufacture: b.manufData,
		Svcs:        b.services,
		Overflow:    b.overflow,
		Solicited:   b.solicited,
		TxPower:     device.TxPowerUnavailable,
		IsConnect:   b.connectable,
	}
	if b.txPower != nil {
		adv.TxPower = *b.txPower
	}

	keys := make([]string, 0, len(b.serviceData))
	for k := range b.serviceData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		adv.SvcData = append(adv.SvcData, device.ServiceData{UUID: k, Data: b.serviceData[k]})
	}
	return adv
}

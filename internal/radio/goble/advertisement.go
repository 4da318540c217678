package goble

import (
	"github.com/go-ble/ble"
	"github.com/srg/blebehave/internal/device"
)

// advertisement wraps ble.Advertisement to implement device.AdvertisementData
type advertisement struct {
	adv ble.Advertisement
}

func newAdvertisement(adv ble.Advertisement) device.AdvertisementData {
	return &advertisement{adv: adv}
}

func (a *advertisement) LocalName() string        { return a.adv.LocalName() }
func (a *advertisement) ManufacturerData() []byte { return a.adv.ManufacturerData() }
func (a *advertisement) TxPowerLevel() int        { return a.adv.TxPowerLevel() }
func (a *advertisement) Connectable() bool        { return a.adv.Connectable() }

func (a *advertisement) ServiceData() []device.ServiceData {
	raw := a.adv.ServiceData()
	result := make([]device.ServiceData, len(raw))
	for i, sd := range raw {
		result[i] = device.ServiceData{UUID: device.NormalizeUUID(sd.UUID.String()), Data: sd.Data}
	}
	return result
}

func (a *advertisement) Services() []string         { return uuidStrings(a.adv.Services()) }
func (a *advertisement) OverflowService() []string  { return uuidStrings(a.adv.OverflowService()) }
func (a *advertisement) SolicitedService() []string { return uuidStrings(a.adv.SolicitedService()) }

func uuidStrings(uuids []ble.UUID) []string {
	result := make([]string, len(uuids))
	for i, u := range uuids {
		result[i] = device.NormalizeUUID(u.String())
	}
	return result
}

// advertises reports whether adv lists any of the wanted services; an empty filter matches everything.
func advertises(adv ble.Advertisement, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, u := range adv.Services() {
		if device.ContainsUUID(filter, u.String()) {
			return true
		}
	}
	return false
}

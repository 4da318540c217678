package device

import (
	"encoding/hex"
	"sort"
	"unicode/utf8"
)

// TxPowerUnavailable is the value radios report when no tx power level was advertised.
const TxPowerUnavailable = 127

// ServiceData is one service data entry of an advertisement.
type ServiceData struct {
	UUID string
	Data []byte
}

// AdvertisementData is the raw advertisement a radio reports alongside a discovery.
type AdvertisementData interface {
	LocalName() string
	ManufacturerData() []byte
	ServiceData() []ServiceData

	Services() []string
	OverflowService() []string
	TxPowerLevel() int
	Connectable() bool
	SolicitedService() []string
}

// Advertisement is the snapshot captured from AdvertisementData when advertisement
// capture is enabled. It never references radio-owned buffers.
type Advertisement struct {
	LocalName        string            `json:"local_name,omitempty"`
	ManufacturerData []byte            `json:"manufacturer_data,omitempty"`
	ServiceData      map[string]string `json:"service_data,omitempty"`
	Services         []string          `json:"services,omitempty"`
	OverflowServices []string          `json:"overflow_services,omitempty"`
	SolicitedService []string          `json:"solicited_services,omitempty"`
	TxPowerLevel     *int              `json:"tx_power_level,omitempty"`
	Connectable      bool              `json:"connectable"`
}

// CaptureAdvertisement copies adv into a snapshot. Service data entries whose payload
// is not valid UTF-8 are skipped.
func CaptureAdvertisement(adv AdvertisementData) *Advertisement {
	if adv == nil {
		return nil
	}

	snap := &Advertisement{
		LocalName:        adv.LocalName(),
		ManufacturerData: append([]byte(nil), adv.ManufacturerData()...),
		ServiceData:      make(map[string]string),
		Services:         NormalizeUUIDs(adv.Services()),
		OverflowServices: NormalizeUUIDs(adv.OverflowService()),
		SolicitedService: NormalizeUUIDs(adv.SolicitedService()),
		Connectable:      adv.Connectable(),
	}
	sort.Strings(snap.Services)

	for _, sd := range adv.ServiceData() {
		if utf8.Valid(sd.Data) {
			snap.ServiceData[NormalizeUUID(sd.UUID)] = string(sd.Data)
		}
	}

	if tx := adv.TxPowerLevel(); tx != TxPowerUnavailable {
		snap.TxPowerLevel = &tx
	}

	return snap
}

// ManufacturerDataHex returns the manufacturer data as lowercase hex, or "" when empty.
func (a *Advertisement) ManufacturerDataHex() string {
	if a == nil || len(a.ManufacturerData) == 0 {
		return ""
	}
	return hex.EncodeToString(a.ManufacturerData)
}

package device

import (
	"encoding/binary"
	"fmt"
)

// knownVendors maps Bluetooth SIG company identifiers to vendor names.
var knownVendors = map[uint16]string{
	0x0006: "Microsoft",
	0x004C: "Apple",
	0x0059: "Nordic Semiconductor",
	0x0075: "Samsung",
	0x00E0: "Google",
	0x02E5: "Espressif",
	0xFFFF: "Test (no company)",
}

// Vendor is the company that sent manufacturer-specific advertisement data.
type Vendor struct {
	ID   uint16 `json:"id"`
	Name string `json:"name,omitempty"`
}

func (v Vendor) String() string {
	if v.Name == "" {
		return fmt.Sprintf("0x%04X", v.ID)
	}
	return fmt.Sprintf("%s (0x%04X)", v.Name, v.ID)
}

// ParseVendor reads the company identifier from the first two bytes of
// manufacturer data (little-endian). It returns false when data is too short.
// Manufacturers are not obliged to follow this layout, so the result is a hint.
func ParseVendor(data []byte) (Vendor, bool) {
	if len(data) < 2 {
		return Vendor{}, false
	}
	id := binary.LittleEndian.Uint16(data[:2])
	return Vendor{ID: id, Name: knownVendors[id]}, true
}

// Vendor returns the vendor of the captured manufacturer data.
func (a *Advertisement) Vendor() (Vendor, bool) {
	if a == nil {
		return Vendor{}, false
	}
	return ParseVendor(a.ManufacturerData)
}

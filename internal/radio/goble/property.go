package goble

import (
	"github.com/go-ble/ble"
	"github.com/srg/blebehave/internal/radio"
)

var propertyMap = []struct {
	ble   ble.Property
	radio radio.Property
}{
	{ble.CharBroadcast, radio.PropBroadcast},
	{ble.CharRead, radio.PropRead},
	{ble.CharWriteNR, radio.PropWriteWithoutResponse},
	{ble.CharWrite, radio.PropWrite},
	{ble.CharNotify, radio.PropNotify},
	{ble.CharIndicate, radio.PropIndicate},
	{ble.CharSignedWrite, radio.PropSignedWrite},
	{ble.CharExtended, radio.PropExtended},
}

// toProperty converts ble.Property bit flags to radio.Property.
func toProperty(p ble.Property) radio.Property {
	var out radio.Property
	for _, m := range propertyMap {
		if p&m.ble != 0 {
			out |= m.radio
		}
	}
	return out
}

package goble

import (
	"fmt"
	"strings"

	"github.com/srg/blebehave/internal/device"
)

// NormalizeError maps go-ble error strings to structured device.ConnectionError types.
// Messages it does not recognize fall through to device.NormalizeError.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case msg == "central manager has invalid state: have=4 want=5: is Bluetooth turned on?":
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case strings.Contains(strings.ToLower(msg), "connection is not initialized"):
		return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	default:
		return device.NormalizeError(err)
	}
}

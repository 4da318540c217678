package main

import (
	"errors"
	"fmt"

	"github.com/srg/blebehave/internal/central"
	"github.com/srg/blebehave/internal/device"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the retry budget ran out after a failed connect or an unexpected disconnect.
	ErrConnectionLost = errors.New("connection lost")

	// ErrDeviceNotFound indicates the search ended without discovering the requested device.
	ErrDeviceNotFound = errors.New("device not found")
)

// FormatUserError turns an error chain into a one-line message for the terminal.
func FormatUserError(err error) string {
	var retryErr *central.RetryError
	switch {
	case errors.As(err, &retryErr):
		return fmt.Sprintf("gave up after %d %s attempts to %s: %v", retryErr.Attempts, retryErr.Kind, retryErr.ID, retryErr.Cause)
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off; enable it and try again"
	case device.IsConnectionState(err, device.NotConnected):
		return fmt.Sprintf("device is not connected (%v)", err)
	default:
		return err.Error()
	}
}

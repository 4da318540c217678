package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identity pairs the globally unique device identifier with its display name.
// Names are neither unique nor guaranteed to be advertised.
type Identity struct {
	ID   uuid.UUID
	Name string
}

// String returns "name (id)" or just the id when the name is empty
func (i Identity) String() string {
	if i.Name == "" {
		return i.ID.String()
	}
	return fmt.Sprintf("%s (%s)", i.Name, i.ID)
}

// UnknownNamePrefix is the prefix of generated names for devices that advertise none.
const UnknownNamePrefix = "Unknown_"

// FallbackName returns the generated display name for the n-th unnamed device.
func FallbackName(n int) string {
	return fmt.Sprintf("%s%d", UnknownNamePrefix, n)
}

// NotFoundError represents an error when a device or GATT resource is not found
type NotFoundError struct {
	Resource string   // "device", "service", "characteristic", "descriptor"
	IDs      []string // One or more identifiers (e.g., [serviceUUID] or [serviceUUID, charUUID])
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.IDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.IDs[0])
	}
	parentResource := "service"
	if e.Resource == "descriptor" {
		parentResource = "characteristic"
	}
	return fmt.Sprintf("%s %q not found in %s %q", e.Resource, e.IDs[len(e.IDs)-1], parentResource, e.IDs[0])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotDiscovered    ConnectionState = "not_discovered"
	NothingFound     ConnectionState = "no_discovered_devices"
	BluetoothOff     ConnectionState = "bluetooth_off"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected       = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected   = &ConnectionError{State: AlreadyConnected}
	ErrNotDiscovered      = &ConnectionError{State: NotDiscovered}
	ErrNoDiscoveredDevice = &ConnectionError{State: NothingFound}
	ErrBluetoothOff       = &ConnectionError{State: BluetoothOff, Msg: "bluetooth is turned off"}
)

// ErrPolicyRejection marks a request the orchestrator refused without touching the radio.
var ErrPolicyRejection = errors.New("rejected by connection policy")

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// containsIgnoreCase checks substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// NormalizeError maps known platform error strings to structured ConnectionError types.
// It ensures consistent handling even if the upstream library changes messages slightly.
// Returns wrapped errors to preserve original context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return err
	}

	msg := err.Error()
	switch {
	case containsIgnoreCase(msg, "is Bluetooth turned on"),
		containsIgnoreCase(msg, "bluetooth is turned off"):
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "device not connected"),
		containsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case containsIgnoreCase(msg, "device already connected"):
		return fmt.Errorf("%w: %v", ErrAlreadyConnected, err)
	default:
		return err
	}
}

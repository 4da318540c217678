package device

import "fmt"

// State is the power/activity state of the local radio and orchestrator.
// Exactly one state is active at a time and only the orchestrator sets it.
type State int

const (
	StateUnknown State = iota
	StateOff
	StateOn
	StateResetting
	StateUnsupported
	StateUnauthorized
	StateScanning
	StateIdle
	StateIdleWithDiscoveredDevices
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailedToConnect
	StatePurposefulDisconnect
	StateLostConnection
)

var stateNames = [...]string{
	StateUnknown:                   "unknown",
	StateOff:                       "off",
	StateOn:                        "on",
	StateResetting:                 "resetting",
	StateUnsupported:               "unsupported",
	StateUnauthorized:              "unauthorized",
	StateScanning:                  "scanning",
	StateIdle:                      "idle",
	StateIdleWithDiscoveredDevices: "idleWithDiscoveredDevices",
	StateConnecting:                "connecting",
	StateConnected:                 "connected",
	StateDisconnected:              "disconnected",
	StateFailedToConnect:           "failedToConnect",
	StatePurposefulDisconnect:      "purposefulDisconnect",
	StateLostConnection:            "lostConnection",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateUnknown, fmt.Errorf("unknown state %q", name)
}

// MarshalText encodes s by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsRecordState reports whether s is one of the states a remote device record may hold.
func (s State) IsRecordState() bool {
	switch s {
	case StateDisconnected, StateConnecting, StateConnected, StatePurposefulDisconnect, StateLostConnection:
		return true
	default:
		return false
	}
}

// PowerState is the platform power state reported by the radio.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PowerResetting
	PowerUnsupported
	PowerUnauthorized
	PowerOff
	PowerOn
)

func (p PowerState) String() string {
	switch p {
	case PowerResetting:
		return "resetting"
	case PowerUnsupported:
		return "unsupported"
	case PowerUnauthorized:
		return "unauthorized"
	case PowerOff:
		return "poweredOff"
	case PowerOn:
		return "poweredOn"
	default:
		return "unknown"
	}
}

// State maps the platform power state onto the local device state.
func (p PowerState) State() State {
	switch p {
	case PowerResetting:
		return StateResetting
	case PowerUnsupported:
		return StateUnsupported
	case PowerUnauthorized:
		return StateUnauthorized
	case PowerOff:
		return StateOff
	case PowerOn:
		return StateOn
	default:
		return StateUnknown
	}
}

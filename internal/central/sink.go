package central

import (
	"github.com/google/uuid"
	"github.com/srg/blebehave/internal/device"
)

// Sink receives orchestrator events. Every slot is optional; a nil slot is skipped.
type Sink struct {
	// SearchExpired is called each time a search window ends, including StopSearch.
	SearchExpired func()
	// StateChanged is called on every change of the local state.
	StateChanged func(state device.State)
	// Connected is called when the radio confirms a connection.
	Connected func(id device.Identity)
	Debug     func(message string)
	// Notification receives every value update of a connected device.
	Notification func(id uuid.UUID, data []byte)
	// NotificationText receives value updates that are valid UTF-8.
	NotificationText func(id uuid.UUID, text string)
	RetryExhausted   func(err *RetryError)
}

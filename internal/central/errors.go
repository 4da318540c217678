package central

import (
	"fmt"

	"github.com/google/uuid"
)

// RetryKind tells which failure a retry budget was spent on.
type RetryKind int

const (
	// RetryConnect is the budget for failed connection attempts.
	RetryConnect RetryKind = iota
	// RetryReconnect is the budget for unexpected disconnects.
	RetryReconnect
)

func (k RetryKind) String() string {
	if k == RetryReconnect {
		return "reconnect"
	}
	return "connect"
}

// RetryError reports that a retry budget is exhausted and the orchestrator gave up on a device.
type RetryError struct {
	Kind     RetryKind
	ID       uuid.UUID
	Attempts int
	Cause    error
}

func (e *RetryError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s to %s gave up after %d retries", e.Kind, e.ID, e.Attempts)
	}
	return fmt.Sprintf("%s to %s gave up after %d retries: %v", e.Kind, e.ID, e.Attempts, e.Cause)
}

func (e *RetryError) Unwrap() error {
	return e.Cause
}

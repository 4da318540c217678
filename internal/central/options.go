package central

import (
	"fmt"
	"time"

	"github.com/srg/blebehave/internal/device"
)

// DefaultRxBufferSize is the per-device receive buffer capacity in bytes.
const DefaultRxBufferSize = 4096

// RetryPolicy configures the fixed-delay retries after a failed connect
// and after an unexpected disconnect.
type RetryPolicy struct {
	MaxConnectRetries   int
	ConnectRetryDelay   time.Duration
	MaxReconnectRetries int
	ReconnectRetryDelay time.Duration
}

// Options is the orchestrator configuration. Applying it has no radio side effects.
type Options struct {
	// ServiceFilter limits scanning and service discovery; empty means all services.
	ServiceFilter []string
	// ConnectionLimit is the maximum number of concurrently connected devices. Values below 1 mean 1.
	ConnectionLimit int
	Retry           RetryPolicy
	// Verbose mirrors debug messages to the sink's Debug hook.
	Verbose               bool
	CaptureAdvertisements bool

	AllCharacteristicsReadable bool
	AllCharacteristicsWritable bool
	// ReadInterest lists characteristic UUIDs to subscribe to.
	ReadInterest []string
	// WriteInterest lists characteristic UUIDs that receive Write payloads.
	WriteInterest []string

	RxBufferSize int
}

// DefaultOptions returns a single-connection configuration with retries disabled.
func DefaultOptions() Options {
	return Options{
		ConnectionLimit: 1,
		RxBufferSize:    DefaultRxBufferSize,
	}
}

func (o Options) normalized() Options {
	if o.ConnectionLimit < 1 {
		o.ConnectionLimit = 1
	}
	if o.RxBufferSize <= 0 {
		o.RxBufferSize = DefaultRxBufferSize
	}
	o.ServiceFilter = device.NormalizeUUIDs(o.ServiceFilter)
	o.ReadInterest = device.NormalizeUUIDs(o.ReadInterest)
	o.WriteInterest = device.NormalizeUUIDs(o.WriteInterest)
	return o
}

// Repeat is the search repeat policy.
type Repeat struct {
	times   int
	forever bool
}

// SearchOnce stops scanning when the first search window expires.
func SearchOnce() Repeat { return Repeat{} }

// SearchForever rescans on every window expiry until StopSearch.
func SearchForever() Repeat { return Repeat{forever: true} }

// SearchTimes rescans n times before stopping. n <= 0 behaves like SearchOnce.
func SearchTimes(n int) Repeat {
	if n < 0 {
		n = 0
	}
	return Repeat{times: n}
}

func (r Repeat) String() string {
	switch {
	case r.forever:
		return "forever"
	case r.times == 0:
		return "once"
	default:
		return fmt.Sprintf("times(%d)", r.times)
	}
}

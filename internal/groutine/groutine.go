// Package groutine names the long-lived goroutines of a session: the event loop,
// the BLE scan and link workers, and the stdin and pty readers.
//
//	groutine.Go(ctx, "ble-link", func(ctx context.Context) {
//	    // dial, then serve queued GATT commands until ctx is done
//	})
//
// The name is set as the pprof label "goroutine_name", so goroutine dumps and
// profiles group by role, and is readable inside fn through GetName.
package groutine

import (
	"context"
	"runtime/pprof"
)

type nameKey struct{}

const labelKey = "goroutine_name"

// Go runs fn on a new goroutine labelled name. A nil parent means context.Background().
func Go(parent context.Context, name string, fn func(ctx context.Context)) {
	if parent == nil {
		parent = context.Background()
	}
	go pprof.Do(parent, pprof.Labels(labelKey, name), func(ctx context.Context) {
		fn(context.WithValue(ctx, nameKey{}, name))
	})
}

// GetName returns the name given to Go, or "" outside a named goroutine.
// The event loop adds it to handler panic logs.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(nameKey{}).(string)
	return name
}

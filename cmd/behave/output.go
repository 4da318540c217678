package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/srg/blebehave/internal/central"
	"github.com/srg/blebehave/internal/device"
)

var (
	nameColor  = color.New(color.FgCyan, color.Bold)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.Faint)
)

// scanEntry is one row of the scan result, strongest signal first.
type scanEntry struct {
	Name          string                `json:"name"`
	ID            uuid.UUID             `json:"id"`
	RSSI          int                   `json:"rssi"`
	Connectable   bool                  `json:"connectable"`
	State         device.State          `json:"state"`
	Vendor        *device.Vendor        `json:"vendor,omitempty"`
	Advertisement *device.Advertisement `json:"advertisement,omitempty"`
}

// collectScan snapshots the discovered registry ranked by RSSI. It must run on the loop.
func collectScan(c *central.Central) []scanEntry {
	ids, rssi := c.RankedByRSSI()
	entries := make([]scanEntry, 0, len(ids))
	for i, id := range ids {
		rec, ok := c.Discovered(id)
		if !ok {
			continue
		}
		entry := scanEntry{
			Name:          rec.Name(),
			ID:            id,
			RSSI:          rssi[i],
			Connectable:   rec.Connectable(),
			State:         rec.State(),
			Advertisement: rec.Advertisement(),
		}
		if v, ok := entry.Advertisement.Vendor(); ok {
			entry.Vendor = &v
		}
		entries = append(entries, entry)
	}
	return entries
}

func displayScan(w io.Writer, entries []scanEntry, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No devices discovered")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tRSSI\tCONNECTABLE\tSERVICES")
	for _, e := range entries {
		name := e.Name
		if len(name) > 20 {
			name = name[:17] + "..."
		}
		var services []string
		if e.Advertisement != nil {
			for _, s := range e.Advertisement.Services {
				services = append(services, device.ShortenUUID(s))
			}
		}
		connectable := "no"
		if e.Connectable {
			connectable = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d dBm\t%s\t%s\n",
			name, e.ID, e.RSSI, connectable, strings.Join(services, ","))
	}
	return tw.Flush()
}

// stateColor picks the color a local state is printed in.
func stateColor(s device.State) *color.Color {
	switch s {
	case device.StateConnected, device.StateIdleWithDiscoveredDevices:
		return okColor
	case device.StateScanning, device.StateConnecting, device.StatePurposefulDisconnect:
		return warnColor
	case device.StateFailedToConnect, device.StateLostConnection, device.StateOff,
		device.StateUnauthorized, device.StateUnsupported:
		return errorColor
	default:
		return debugColor
	}
}

func printState(w io.Writer, s device.State) {
	stateColor(s).Fprintf(w, "state: %s\n", s)
}

func printDebug(w io.Writer, msg string) {
	debugColor.Fprintln(w, msg)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/blebehave/internal/central"
	"github.com/srg/blebehave/internal/device"
)

type scanOptions struct {
	timeout  time.Duration
	repeat   string
	times    int
	services []string
	format   string
}

// newScanCmd creates the scan command
func newScanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Search for BLE devices",
		Long: `Search for Bluetooth Low Energy devices in timed windows.

Discovered devices are listed strongest signal first when the search ends.
With --repeat forever (or times) a table is printed after every window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "Search window length (default from config, 10s)")
	cmd.Flags().StringVarP(&opts.repeat, "repeat", "r", "", "Repeat policy (once, forever, times)")
	cmd.Flags().IntVarP(&opts.times, "times", "n", 0, "Number of rescans for --repeat times")
	cmd.Flags().StringSliceVarP(&opts.services, "services", "s", nil, "Only report devices advertising these service UUIDs")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format (table, json)")
	return cmd
}

func runScan(cmd *cobra.Command, opts *scanOptions) error {
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", opts.format)
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Search.Timeout = opts.timeout
	}
	if flags.Changed("repeat") {
		cfg.Search.Repeat = opts.repeat
	}
	if flags.Changed("times") {
		cfg.Search.Times = opts.times
	}
	if flags.Changed("services") {
		cfg.Search.Services = opts.services
	}
	cfg.Search.CaptureAdvertisements = true
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scan options: %w", err)
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open BLE session: %w", err)
	}
	defer s.close()

	var startErr error
	if err := s.do(ctx, func(c *central.Central) {
		startErr = c.StartSearch(cfg.Search.Timeout, cfg.Repeat())
	}); err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	window := 0

	for {
		select {
		case <-ctx.Done():
			var entries []scanEntry
			_ = s.do(context.Background(), func(c *central.Central) {
				c.StopSearch()
				entries = collectScan(c)
			})
			return displayScan(out, entries, opts.format)

		case ev := <-s.events:
			switch ev.kind {
			case evDebug:
				printDebug(errOut, ev.text)
			case evState:
				if cfg.Verbose {
					printState(errOut, ev.state)
				}
				if ev.state == device.StateOff {
					return device.ErrBluetoothOff
				}
			case evSearchExpired:
				window++
				var (
					searching bool
					entries   []scanEntry
				)
				if err := s.do(ctx, func(c *central.Central) {
					searching = c.Searching()
					entries = collectScan(c)
				}); err != nil {
					return err
				}
				if !searching {
					return displayScan(out, entries, opts.format)
				}
				if opts.format == "table" {
					nameColor.Fprintf(out, "window %d\n", window)
				}
				if err := displayScan(out, entries, opts.format); err != nil {
					return err
				}
			}
		}
	}
}

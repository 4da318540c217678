package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/srg/blebehave/internal/central"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/groutine"
	"github.com/srg/blebehave/internal/ptyio"
	"golang.org/x/term"
)

const (
	gattPollInterval  = 50 * time.Millisecond
	gattSettleTimeout = 2 * time.Second
)

type connectOptions struct {
	timeout    time.Duration
	duration   time.Duration
	send       string
	readChars  []string
	writeChars []string
	retries    int
	reconnects int
	forceStdin bool
	pty        bool
}

// newConnectCmd creates the connect command
func newConnectCmd() *cobra.Command {
	opts := &connectOptions{}
	cmd := &cobra.Command{
		Use:   "connect <name>",
		Short: "Connect to a BLE device by name and open a serial session",
		Long: `Search for a device advertising <name>, connect to it and discover its GATT profile.

Notifications that are valid UTF-8 are printed as they arrive. Lines typed on an
interactive terminal (or piped with --stdin) are written to every write
characteristic, terminated by a newline. Without --read/--write every
characteristic is subscribed to and written.

With --pty the session is bridged to a pseudo-terminal instead: its path is
printed on start, lines written to it go to the device and notifications are
written back to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd, args[0], opts)
		},
	}

	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "Search window length (default from config, 10s)")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "Session length after connecting (0 until Ctrl+C)")
	cmd.Flags().StringVar(&opts.send, "send", "", "Text to write once the device is connected")
	cmd.Flags().StringSliceVar(&opts.readChars, "read", nil, "Characteristic UUIDs to subscribe to")
	cmd.Flags().StringSliceVar(&opts.writeChars, "write", nil, "Characteristic UUIDs to write to")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Connect retries before giving up (default from config)")
	cmd.Flags().IntVar(&opts.reconnects, "reconnects", 0, "Reconnect retries after an unexpected disconnect (default from config)")
	cmd.Flags().BoolVar(&opts.forceStdin, "stdin", false, "Read lines from stdin even when it is not a terminal")
	cmd.Flags().BoolVar(&opts.pty, "pty", false, "Bridge the session to a pseudo-terminal")
	return cmd
}

func runConnect(cmd *cobra.Command, name string, opts *connectOptions) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Search.Timeout = opts.timeout
	}
	if flags.Changed("read") {
		cfg.GATT.ReadInterest = opts.readChars
	}
	if flags.Changed("write") {
		cfg.GATT.WriteInterest = opts.writeChars
	}
	if flags.Changed("retries") {
		cfg.Connect.MaxRetries = opts.retries
	}
	if flags.Changed("reconnects") {
		cfg.Connect.MaxReconnectRetries = opts.reconnects
	}
	if len(cfg.GATT.ReadInterest) == 0 && len(cfg.GATT.WriteInterest) == 0 {
		cfg.GATT.AllReadable = true
		cfg.GATT.AllWritable = true
	}
	cfg.Search.Repeat = "once"
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid connect options: %w", err)
	}
	if opts.duration < 0 {
		return fmt.Errorf("invalid duration %s: must be >= 0", opts.duration)
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
		startErr = c.StartSearch(cfg.Search.Timeout, central.SearchOnce())
	}); err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	var port *ptyio.Port
	if opts.pty {
		if port, err = ptyio.Open(logger); err != nil {
			return err
		}
		defer port.Close()
		nameColor.Fprintf(errOut, "Serial port: %s\n", port.Name())
	}

	fmt.Fprintf(errOut, "Searching for %q for %s...\n", name, cfg.Search.Timeout)

	var (
		target  uuid.UUID
		lines   <-chan string
		expired <-chan time.Time

		// Writes wait until GATT discovery has registered a write characteristic.
		ready    bool
		poll     *time.Ticker
		pollC    <-chan time.Time
		settleBy time.Time
	)
	defer func() {
		if poll != nil {
			poll.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-expired:
			return nil

		case <-pollC:
			var writable int
			if err := s.do(ctx, func(c *central.Central) { writable = len(c.WriteInterest()) }); err != nil {
				return err
			}
			if writable == 0 && time.Now().Before(settleBy) {
				continue
			}
			poll.Stop()
			poll, pollC, ready = nil, nil, true
			if writable == 0 {
				warnColor.Fprintln(errOut, "No writable characteristics discovered, input is ignored")
				continue
			}
			if opts.send != "" {
				if err := s.do(ctx, func(c *central.Central) { c.Write(target, opts.send) }); err != nil {
					return err
				}
			}
			switch {
			case port != nil:
				lines = port.Lines(ctx)
			case opts.forceStdin || isTerminal(os.Stdin):
				lines = readLines(ctx, cmd.InOrStdin())
			}

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if err := s.do(ctx, func(c *central.Central) {
				if !c.Write(target, line) {
					logger.WithField("id", target).Warn("Write dropped, device is not connected")
				}
			}); err != nil {
				return err
			}

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
				if target != uuid.Nil {
					continue
				}
				var (
					ok bool
					id uuid.UUID
				)
				if err := s.do(ctx, func(c *central.Central) {
					ok = c.ConnectByName(name)
					id, _ = c.DiscoveredIDByName(name)
				}); err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
				}
				target = id
				warnColor.Fprintf(errOut, "Connecting to %s (%s)...\n", name, id)

			case evConnected:
				okColor.Fprintf(errOut, "Connected to %s\n", ev.identity)
				if !ready && poll == nil {
					poll = time.NewTicker(gattPollInterval)
					pollC = poll.C
					settleBy = time.Now().Add(gattSettleTimeout)
				}
				if opts.duration > 0 && expired == nil {
					expired = time.After(opts.duration)
				}

			case evText:
				fmt.Fprint(out, ev.text)
				if port != nil {
					if _, err := port.Write([]byte(ev.text)); err != nil {
						logger.WithField("error", err).Warn("Failed to forward notification to pty")
					}
				}

			case evRetryExhausted:
				errorColor.Fprintf(errOut, "%v\n", ev.err)
				return fmt.Errorf("%w: %w", ErrConnectionLost, ev.err)
			}
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// readLines forwards input lines until EOF or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	groutine.Go(ctx, "stdin-reader", func(ctx context.Context) {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	})
	return lines
}

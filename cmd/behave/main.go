package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// newRootCmd creates the base command with every subcommand attached
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "behave",
		Short: "Behavioral Bluetooth Low Energy central",
		Long: `Behavioral Bluetooth Low Energy (BLE) central that provides:

- Timed, repeatable searches for nearby peripherals ranked by signal strength
- Connections with a connection limit and fixed-delay retry policy
- Automatic GATT discovery with notification and write routing
- A line-oriented serial session over UART-style characteristics`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
		// Silence Cobra's "Error:" prefix - main() prints clean errors
		SilenceErrors: true,
	}

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newConnectCmd())

	// Global flags
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().Bool("verbose", false, "Print orchestrator debug messages")

	cmd.Flags().BoolP("version", "v", false, "Show version information")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

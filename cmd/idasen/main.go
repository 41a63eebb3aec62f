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

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "idasen",
	Short: "IKEA Idasen standing desk controller",
	Long: `Control an IKEA Idasen standing desk over Bluetooth Low Energy:

- Scan for nearby BLE devices and find the desk
- Report the desk's connection state and current height
- Monitor height and speed in real time
- Move the desk to sitting, standing, or an arbitrary height

Configuration comes from config.yaml and can be overridden per flag.
The desk address must be provided (mac_address in the config file or
--mac-address).`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		// Print user-friendly error message
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(sitCmd)
	rootCmd.AddCommand(standCmd)
	rootCmd.AddCommand(moveToCmd)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file path (default config.yaml)")
	rootCmd.PersistentFlags().String("mac-address", "", "MAC address of the desk")
	rootCmd.PersistentFlags().String("adapter", "", "Bluetooth adapter device name (e.g. hci0)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Duration("scan-timeout", 0, "Timeout for the Bluetooth scan")
	rootCmd.PersistentFlags().Duration("connection-timeout", 0, "Timeout for Bluetooth connection")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}

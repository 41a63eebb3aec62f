package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maxime1992/idasen-controller/internal/desk"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect to the desk and report its state",
	Long: `Connects to the configured desk, reports whether the connection was
established and prints the current height, then disconnects.

The connection is released on every exit path; a desk that cannot be
reached results in a non-zero exit.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("skip-scan", false, "Connect directly without scanning for the desk first")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := configureLogger(cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	sessOpts := sessionOptions(cfg)
	sessOpts.SkipScan, _ = cmd.Flags().GetBool("skip-scan")

	progress := NewProgressPrinter("Connecting to desk "+cfg.MacAddress, "Scanning", "Processing results", "Failed")
	progress.Start()
	defer progress.Stop()

	ctx, cancel := signalContext()
	defer cancel()

	_, err = desk.Run(ctx, sessOpts, deskOptions(cfg), logger, progress.Callback(), func(d *desk.Desk) (struct{}, error) {
		progress.Stop()

		hs, err := d.Height()
		if err != nil {
			return struct{}{}, err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Connected: %s\n", color.GreenString("%t", d.Device().IsConnected()))
		fmt.Fprintf(cmd.OutOrStdout(), "Height: %4.0fmm\n", hs.Millimeters())
		return struct{}{}, nil
	})
	return err
}

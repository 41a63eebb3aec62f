package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxime1992/idasen-controller/internal/desk"
	"github.com/maxime1992/idasen-controller/internal/device"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor desk height and speed",
	Long: `Connects to the desk and prints a line for every height notification
until interrupted with Ctrl+C or the connection drops.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
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

	cmd.SilenceUsage = true

	progress := NewProgressPrinter("Connecting to desk "+cfg.MacAddress, "Scanning", "Processing results", "Failed")
	progress.Start()
	defer progress.Stop()

	ctx, cancel := signalContext()
	defer cancel()

	_, err = desk.Run(ctx, sessionOptions(cfg), deskOptions(cfg), logger, progress.Callback(), func(d *desk.Desk) (struct{}, error) {
		progress.Stop()

		hs, err := d.Height()
		if err != nil {
			return struct{}{}, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Height: %4.0fmm\n", hs.Millimeters())

		if err := d.Monitor(ctx, cmd.OutOrStdout()); err != nil {
			if errors.Is(err, device.ErrNotConnected) {
				return struct{}{}, fmt.Errorf("%w: %v", ErrConnectionLost, err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}

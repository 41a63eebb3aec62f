package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maxime1992/idasen-controller/internal/desk"
	"github.com/maxime1992/idasen-controller/pkg/config"
)

// sitCmd represents the sit command
var sitCmd = &cobra.Command{
	Use:   "sit",
	Short: "Move the desk to sitting height",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMove(cmd, func(cfg *config.Config) int { return cfg.SitHeight })
	},
}

// standCmd represents the stand command
var standCmd = &cobra.Command{
	Use:   "stand",
	Short: "Move the desk to standing height",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMove(cmd, func(cfg *config.Config) int { return cfg.StandHeight })
	},
}

// moveToCmd represents the move-to command
var moveToCmd = &cobra.Command{
	Use:   "move-to <height-mm>",
	Short: "Move the desk to the given height (mm)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid height %q: %w", args[0], err)
		}
		return runMove(cmd, func(*config.Config) int { return target })
	},
}

func init() {
	for _, cmd := range []*cobra.Command{sitCmd, standCmd, moveToCmd} {
		cmd.Flags().Int("sit-height", 0, "Desk height when sitting (mm)")
		cmd.Flags().Int("stand-height", 0, "Desk height when standing (mm)")
		cmd.Flags().Float64("height-tolerance", 0, "Stop distance from target height (mm)")
		cmd.Flags().Duration("movement-timeout", 0, "Timeout for reaching the target height")
	}
}

// runMove connects to the desk and drives it to the height selected by pick.
func runMove(cmd *cobra.Command, pick func(*config.Config) int) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	targetMM := pick(cfg)
	if err := cfg.ValidateHeight(targetMM); err != nil {
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
		return struct{}{}, d.MoveTo(ctx, desk.MMToRaw(float64(targetMM)), cmd.OutOrStdout())
	})
	return err
}

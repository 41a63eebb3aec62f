package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/maxime1992/idasen-controller/internal/device/goble"
	"github.com/maxime1992/idasen-controller/pkg/config"
)

// loadConfig builds the effective configuration: built-in defaults, then the
// YAML file, then any flags the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := cmd.Flags().Changed("config")
	if path == "" {
		path = config.DefaultFile
	}

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}

	overlayString(cmd, "mac-address", &cfg.MacAddress)
	overlayString(cmd, "adapter", &cfg.Adapter)
	overlayString(cmd, "log-level", &cfg.LogLevel)
	overlayDuration(cmd, "scan-timeout", &cfg.ScanTimeout)
	overlayDuration(cmd, "connection-timeout", &cfg.ConnectionTimeout)
	overlayDuration(cmd, "movement-timeout", &cfg.MovementTimeout)
	overlayInt(cmd, "sit-height", &cfg.SitHeight)
	overlayInt(cmd, "stand-height", &cfg.StandHeight)
	overlayFloat(cmd, "height-tolerance", &cfg.HeightTolerance)

	// The adapter choice is a transport-level concern, applied once here so
	// every command picks it up.
	goble.AdapterName = cfg.Adapter

	return cfg, nil
}

func overlayString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
	}
}

func overlayDuration(cmd *cobra.Command, name string, dst *time.Duration) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = cmd.Flags().GetDuration(name)
	}
}

func overlayInt(cmd *cobra.Command, name string, dst *int) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = cmd.Flags().GetInt(name)
	}
}

func overlayFloat(cmd *cobra.Command, name string, dst *float64) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst, _ = cmd.Flags().GetFloat64(name)
	}
}

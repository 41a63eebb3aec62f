package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maxime1992/idasen-controller/pkg/config"
)

// debugEnvVar enables verbose diagnostic logging when set to a truthy value.
// It is honored before any BLE operation begins; --log-level and the config
// file's log_level take precedence.
const debugEnvVar = "IDASEN_DEBUG"

// configureLogger creates a logger from the effective configuration,
// folding in the debug environment toggle.
func configureLogger(cfg *config.Config) (*logrus.Logger, error) {
	if cfg.LogLevel == "" && envTruthy(os.Getenv(debugEnvVar)) {
		cfg.LogLevel = "debug"
	}
	return cfg.NewLogger()
}

func envTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

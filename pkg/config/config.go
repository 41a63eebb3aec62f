// Package config holds application configuration: built-in defaults overlaid
// by an optional YAML file, overlaid by command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/maxime1992/idasen-controller/internal/device"
)

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = "config.yaml"

// Config holds application configuration. Heights are absolute millimeters.
type Config struct {
	MacAddress        string        `yaml:"mac_address"`
	Adapter           string        `yaml:"adapter_name" default:"hci0"`
	SitHeight         int           `yaml:"sit_height" default:"683"`
	StandHeight       int           `yaml:"stand_height" default:"1040"`
	HeightTolerance   float64       `yaml:"height_tolerance" default:"2.0"`
	ScanTimeout       time.Duration `yaml:"scan_timeout" default:"5s"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" default:"10s"`
	MovementTimeout   time.Duration `yaml:"movement_timeout" default:"30s"`
	CacheFile         string        `yaml:"cache_file" default:"desk.cache.yaml"`
	LogLevel          string        `yaml:"log_level"`
}

// Desk height range, duplicated from the desk profile to keep this package
// free of domain imports.
const (
	minHeightMM = 620
	maxHeightMM = 1270
)

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// Load returns the defaults overlaid with the YAML file at path. When
// explicit is false a missing file is fine (the default config.yaml is
// optional); an explicitly requested file must exist.
func Load(path string, explicit bool) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return c, nil
}

// Validate checks cross-field invariants and normalizes the device address.
// It must pass before any BLE operation is attempted.
func (c *Config) Validate() error {
	addr, err := device.ValidateAddress(c.MacAddress)
	if err != nil {
		return fmt.Errorf("mac address must be provided via config file or --mac-address: %w", err)
	}
	c.MacAddress = addr

	if c.SitHeight >= c.StandHeight {
		return fmt.Errorf("sit height (%dmm) must be less than stand height (%dmm)", c.SitHeight, c.StandHeight)
	}
	if c.SitHeight < minHeightMM {
		return fmt.Errorf("sit height must be greater than %dmm", minHeightMM)
	}
	if c.StandHeight > maxHeightMM {
		return fmt.Errorf("stand height must be less than %dmm", maxHeightMM)
	}
	if c.HeightTolerance < 0 {
		return fmt.Errorf("height tolerance must not be negative")
	}
	return nil
}

// ValidateHeight checks an explicit move-to target against the desk's range.
func (c *Config) ValidateHeight(heightMM int) error {
	if heightMM < minHeightMM || heightMM > maxHeightMM {
		return fmt.Errorf("height %dmm out of range [%d, %d]", heightMM, minHeightMM, maxHeightMM)
	}
	return nil
}

// NewLogger creates a logger configured from the config's log level.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level := logrus.PanicLevel // essentially silent for normal operations
	if c.LogLevel != "" {
		parsed, err := logrus.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
		}
		level = parsed
	}
	logger.SetLevel(level)
	return logger, nil
}

package desk

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxime1992/idasen-controller/internal/device"
	"github.com/maxime1992/idasen-controller/internal/devicefactory"
	"github.com/maxime1992/idasen-controller/scanner"
)

// ProgressCallback is called when the session phase changes
type ProgressCallback func(phase string)

// SessionOptions defines how a desk session resolves and connects its device.
type SessionOptions struct {
	Address        string
	ConnectTimeout time.Duration
	ScanTimeout    time.Duration

	// CachePath points at the resolved-device cache; empty disables caching.
	CachePath string

	// SkipScan connects directly without verifying the desk is advertising.
	SkipScan bool
}

// SessionCallback processes a connected desk and produces output of type R
type SessionCallback[R any] func(*Desk) (R, error)

// Run resolves the desk, connects, executes callback, and releases the
// connection on every exit path, including callback panics and connection
// failures. The device lifecycle is managed entirely by this function; the
// callback must not disconnect.
func Run[R any](ctx context.Context, opts *SessionOptions, deskOpts *Options, logger *logrus.Logger, progressCallback ProgressCallback, callback SessionCallback[R]) (R, error) {
	var zero R
	if opts == nil {
		return zero, fmt.Errorf("session options are required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if progressCallback == nil {
		progressCallback = func(string) {} // No-op callback
	}

	address, err := device.ValidateAddress(opts.Address)
	if err != nil {
		return zero, err
	}

	if !opts.SkipScan {
		if err := resolveDevice(ctx, address, opts, logger, progressCallback); err != nil {
			progressCallback("Failed")
			return zero, err
		}
	}

	progressCallback("Connecting")

	dev := devicefactory.NewDevice(address, logger)
	connectOpts := &device.ConnectOptions{ConnectTimeout: opts.ConnectTimeout}

	if err := dev.Connect(ctx, connectOpts); err != nil {
		// Release even after a failed establishment so the transport resources
		// are returned on every exit path.
		if relErr := dev.Disconnect(); relErr != nil {
			logger.WithError(relErr).Debug("Release after failed connect reported an error")
		}
		progressCallback("Failed")
		return zero, err
	}

	progressCallback("Connected")

	defer func(dev device.Device) {
		if err := dev.Disconnect(); err != nil {
			logger.WithError(err).Error("failed to disconnect device")
		}
	}(dev)

	d, err := Attach(dev, deskOpts, logger)
	if err != nil {
		progressCallback("Failed")
		return zero, err
	}

	if opts.CachePath != "" {
		if err := SaveCache(opts.CachePath, dev); err != nil {
			logger.WithError(err).Warn("Failed to update device cache")
		}
	}

	progressCallback("Processing results")

	return callback(d)
}

// resolveDevice verifies the desk is reachable before dialing. A cache hit
// skips the scan entirely; otherwise the desk must show up in a scan bounded
// by ScanTimeout.
func resolveDevice(ctx context.Context, address string, opts *SessionOptions, logger *logrus.Logger, progressCallback ProgressCallback) error {
	if opts.CachePath != "" {
		cached, err := LoadCache(opts.CachePath)
		if err != nil {
			logger.WithError(err).Warn("Failed to read device cache")
		}
		if cached.Matches(address) {
			logger.WithFields(logrus.Fields{
				"address":   cached.Address,
				"name":      cached.Name,
				"cached_at": cached.CachedAt,
			}).Debug("Device cache hit, skipping scan")
			return nil
		}
	}

	progressCallback("Scanning")

	s, err := scanner.NewScanner(logger)
	if err != nil {
		return fmt.Errorf("failed to create BLE scanner: %w", err)
	}

	found, err := s.FindDevice(ctx, address, opts.ScanTimeout)
	if err != nil {
		return err
	}
	if found == nil {
		return fmt.Errorf("%w: desk %q not found during scan", device.ErrConnectFailed, address)
	}

	logger.WithFields(logrus.Fields{
		"address": found.Address(),
		"name":    found.Name(),
		"rssi":    found.RSSI(),
	}).Info("Desk found")
	return nil
}

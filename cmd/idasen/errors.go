package main

import (
	"errors"

	"github.com/maxime1992/idasen-controller/internal/desk"
	"github.com/maxime1992/idasen-controller/internal/device"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the BLE connection was unexpectedly lost during operation.
	// This is distinct from device.ErrNotConnected, which indicates an attempt to use
	// a device that was never connected or was already disconnected.
	ErrConnectionLost = errors.New("connection lost")
)

// FormatUserError turns internal errors into actionable messages. Anything
// unrecognized passes through unchanged.
func FormatUserError(err error) string {
	switch {
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off - turn it on and try again"
	case errors.Is(err, ErrConnectionLost), errors.Is(err, device.ErrNotConnected):
		return "lost connection with the desk: " + err.Error()
	case errors.Is(err, desk.ErrMovementInterrupted):
		return "desk stopped moving - the physical controls were probably touched"
	case errors.Is(err, desk.ErrNotADesk):
		return "the device at this address is not an Idasen desk: " + err.Error()
	case errors.Is(err, device.ErrTimeout):
		return "operation timed out: " + err.Error()
	default:
		return err.Error()
	}
}

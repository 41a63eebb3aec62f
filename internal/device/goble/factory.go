package goble

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-ble/ble"

	"github.com/maxime1992/idasen-controller/internal/device"
)

// AdapterName selects the host Bluetooth adapter on platforms that expose more
// than one (Linux "hciN" naming). Ignored on Darwin, where CoreBluetooth picks
// the adapter itself.
var AdapterName string

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (ble.Device, error) {
	return newDefaultDevice()
}

// parseAdapterID extracts the numeric adapter index from an "hciN" name.
func parseAdapterID(name string) (int, bool) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "hci")
	if s == name || s == "" {
		return 0, false
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// bleScanner wraps ble.Device to implement the device.Scanner interface
type bleScanner struct {
	dev ble.Device
}

// Scan wraps the raw ble.Device.Scan to convert ble.Advertisement to the device.Advertisement
func (s *bleScanner) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	bleHandler := func(adv ble.Advertisement) {
		handler(NewBLEAdvertisement(adv))
	}
	if err := s.dev.Scan(ctx, allowDup, bleHandler); err != nil {
		return NormalizeError(err)
	}
	return nil
}

// NewScanner creates a device.Scanner instance for BLE scanning operations.
func NewScanner() (device.Scanner, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	return &bleScanner{dev: dev}, nil
}

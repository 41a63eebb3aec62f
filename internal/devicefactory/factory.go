package devicefactory

import (
	"github.com/sirupsen/logrus"

	"github.com/maxime1992/idasen-controller/internal/device"
	"github.com/maxime1992/idasen-controller/internal/device/goble"
)

// ScannerFactory creates device.Scanner instances for BLE scanning operations.
// This is a variable so that it can be overridden in tests.
var ScannerFactory = func() (device.Scanner, error) {
	return goble.NewScanner()
}

// NewDevice creates a new BLE device with the specified address.
// This is the primary constructor for creating device instances and
// is a variable so tests can substitute fake peripherals.
var NewDevice = func(address string, logger *logrus.Logger) device.Device {
	return goble.NewBLEDevice(address, logger)
}

// NewDeviceFromAdvertisement creates a new BLE device from a device.Advertisement.
// Used during scanning to create device instances from discovered advertisements.
var NewDeviceFromAdvertisement = func(adv device.Advertisement, logger *logrus.Logger) device.Device {
	return goble.NewBLEDeviceFromAdvertisement(adv, logger)
}

//go:build linux

package goble

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

func newDefaultDevice() (ble.Device, error) {
	var opts []ble.Option
	if id, ok := parseAdapterID(AdapterName); ok {
		opts = append(opts, ble.OptDeviceID(id))
	}

	dev, err := linux.NewDevice(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating linux device: %w", err)
	}
	return dev, nil
}

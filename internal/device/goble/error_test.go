package goble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maxime1992/idasen-controller/internal/device"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{
			name:     "darwin bluetooth off",
			input:    errors.New("bluetooth is turned off"),
			expected: device.ErrBluetoothOff,
		},
		{
			name:     "corebluetooth powered off state",
			input:    errors.New("central manager state: have=4 want=5"),
			expected: device.ErrBluetoothOff,
		},
		{
			name:     "linux hci down",
			input:    errors.New("can't down hci: operation not permitted"),
			expected: device.ErrBluetoothOff,
		},
		{
			name:     "linux no adapter",
			input:    errors.New("no devices available"),
			expected: device.ErrBluetoothOff,
		},
		{
			name:     "device not connected",
			input:    errors.New("Device Not Connected"),
			expected: device.ErrNotConnected,
		},
		{
			name:     "disconnected mid operation",
			input:    errors.New("peer disconnected"),
			expected: device.ErrNotConnected,
		},
		{
			name:     "already connected",
			input:    errors.New("device already connected"),
			expected: device.ErrAlreadyConnected,
		},
		{
			name:     "uninitialized connection",
			input:    errors.New("connection is not initialized"),
			expected: device.ErrNotInitialized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeError(tt.input)
			assert.ErrorIs(t, result, tt.expected)
			// The original message survives for diagnostics.
			assert.Contains(t, result.Error(), tt.input.Error())
		})
	}
}

func TestNormalizeError_Passthrough(t *testing.T) {
	err := errors.New("something else entirely")
	assert.Equal(t, err, NormalizeError(err))
	assert.Nil(t, NormalizeError(nil))
}

func TestParseAdapterID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		ok       bool
	}{
		{name: "hci0", input: "hci0", expected: 0, ok: true},
		{name: "hci1", input: "hci1", expected: 1, ok: true},
		{name: "uppercase", input: "HCI2", expected: 2, ok: true},
		{name: "whitespace", input: " hci0 ", expected: 0, ok: true},
		{name: "empty", input: "", ok: false},
		{name: "bare hci", input: "hci", ok: false},
		{name: "not an adapter", input: "eth0", ok: false},
		{name: "negative", input: "hci-1", ok: false},
		{name: "non numeric suffix", input: "hciX", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := parseAdapterID(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, id)
			}
		})
	}
}

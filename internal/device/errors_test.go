package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConnectionError
		expected string
	}{
		{
			name:     "state only",
			err:      &ConnectionError{State: NotConnected},
			expected: "not_connected",
		},
		{
			name:     "state with message",
			err:      &ConnectionError{State: ConnectFailed, Msg: "dial failed"},
			expected: "connect_failed: dial failed",
		},
		{
			name:     "nil receiver",
			err:      nil,
			expected: "<nil>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConnectionError_Is(t *testing.T) {
	detailed := &ConnectionError{State: BluetoothOff, Msg: "hci0 is down"}

	assert.True(t, errors.Is(detailed, ErrBluetoothOff))
	assert.False(t, errors.Is(detailed, ErrNotConnected))

	wrapped := fmt.Errorf("connect: %w", detailed)
	assert.True(t, errors.Is(wrapped, ErrBluetoothOff))
}

func TestIsConnectionState(t *testing.T) {
	wrapped := fmt.Errorf("session: %w", &ConnectionError{State: ConnectFailed, Msg: "desk not found"})

	assert.True(t, IsConnectionState(wrapped, ConnectFailed))
	assert.False(t, IsConnectionState(wrapped, BluetoothOff))
	assert.False(t, IsConnectionState(errors.New("plain"), ConnectFailed))
}

func TestNotFoundError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		expected string
	}{
		{
			name:     "no UUIDs",
			err:      &NotFoundError{Resource: "service"},
			expected: "service not found",
		},
		{
			name:     "single UUID",
			err:      &NotFoundError{Resource: "service", UUIDs: []string{"180d"}},
			expected: `service "180d" not found`,
		},
		{
			name:     "characteristic within service",
			err:      &NotFoundError{Resource: "characteristic", UUIDs: []string{"180d", "2a37"}},
			expected: `characteristic "2a37" not found in service "180d"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

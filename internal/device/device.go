package device

import (
	"context"
	"time"
)

// Advertisement is the transport-agnostic view of a received BLE advertisement.
type Advertisement interface {
	LocalName() string
	ManufacturerData() []byte
	Services() []string
	TxPowerLevel() int
	Connectable() bool
	RSSI() int
	Addr() string
}

// Scanner represents a BLE adapter capable of scanning for advertisements.
type Scanner interface {
	Scan(ctx context.Context, allowDup bool, handler func(Advertisement)) error
}

// DeviceInfo exposes the metadata collected for a discovered peripheral.
//
//nolint:revive // DeviceInfo name is intentional for clarity when used as a device.DeviceInfo
type DeviceInfo interface {
	ID() string
	Name() string
	Address() string
	RSSI() int
	TxPower() *int
	IsConnectable() bool
	AdvertisedServices() []string
	ManufacturerData() []byte
	LastSeen() time.Time
}

// Device defines the interface for all peripheral device types.
type Device interface {
	DeviceInfo

	Connect(ctx context.Context, opts *ConnectOptions) error
	Disconnect() error
	IsConnected() bool
	Update(adv Advertisement)
	Connection() Connection
}

// Connection represents an established BLE connection with a discovered
// GATT profile.
type Connection interface {
	Services() []Service
	GetService(uuid string) (Service, error)
	GetCharacteristic(service, uuid string) (Characteristic, error)

	// Done is closed when the connection ends, whether by Disconnect or by the
	// transport reporting a drop. Err reports the cause after Done is closed;
	// nil means an orderly local disconnect.
	Done() <-chan struct{}
	Err() error
}

// Service represents a discovered GATT service.
type Service interface {
	UUID() string
	Characteristics() []Characteristic
}

// Characteristic combines metadata with read/write/notify operations.
type Characteristic interface {
	UUID() string
	CanNotify() bool

	Read(timeout time.Duration) ([]byte, error)
	Write(data []byte, withResponse bool, timeout time.Duration) error

	// Subscribe registers handler for notifications. At most one handler is
	// active per characteristic; Unsubscribe releases it.
	Subscribe(handler func(data []byte)) error
	Unsubscribe() error
}

// ConnectOptions defines BLE connection options.
type ConnectOptions struct {
	ConnectTimeout time.Duration
}

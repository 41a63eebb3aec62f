package goble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/maxime1992/idasen-controller/internal/device"
)

const (
	// DefaultBLEWriteChunkSize is the maximum number of bytes to write in a single BLE operation.
	// BLE 4.0/4.1 spec defines ATT_MTU of 23 bytes (20 bytes payload after ATT header overhead).
	// Keeping chunks at 20 bytes ensures compatibility with all BLE versions.
	DefaultBLEWriteChunkSize = 20

	// DefaultBLEWriteDelay is the delay between consecutive write chunks.
	// This prevents overwhelming the BLE peripheral's receive buffer.
	DefaultBLEWriteDelay = 10 * time.Millisecond

	// DefaultConnectTimeout bounds connection establishment when the caller
	// does not provide one.
	DefaultConnectTimeout = 30 * time.Second
)

// BLEConnection represents a live BLE connection (reads, writes, notifications)
type BLEConnection struct {
	client      ble.Client
	logger      *logrus.Logger
	writeMutex  sync.Mutex
	connMutex   sync.RWMutex
	isConnected bool

	// services preserves GATT discovery order, keyed by normalized UUID
	services *orderedmap.OrderedMap[string, *BLEService]

	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewBLEConnection creates a connection shell; Connect brings it up.
func NewBLEConnection(logger *logrus.Logger) *BLEConnection {
	if logger == nil {
		logger = logrus.New()
	}
	return &BLEConnection{
		services: orderedmap.New[string, *BLEService](),
		ctx:      context.Background(),
		logger:   logger,
	}
}

// Connect establishes a BLE connection and populates live characteristics
func (c *BLEConnection) Connect(ctx context.Context, address string, opts *device.ConnectOptions) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if strings.TrimSpace(address) == "" {
		c.logger.Error("Connection attempt with empty address")
		return fmt.Errorf("device address is empty")
	}

	if c.isConnectedInternal() {
		c.logger.WithField("address", address).Warn("Connection attempt while already connected")
		return device.ErrAlreadyConnected
	}

	if opts == nil {
		opts = &device.ConnectOptions{ConnectTimeout: DefaultConnectTimeout}
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	c.logger.WithFields(logrus.Fields{
		"address": address,
		"timeout": connectTimeout,
	}).Info("Connecting to BLE device...")

	// Create a BLE device using the factory (allows for mocking in tests)
	dev, err := DeviceFactory()
	if err != nil {
		c.logger.WithField("error", err).Error("Failed to create BLE device")
		return fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	ble.SetDefaultDevice(dev)

	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	c.logger.WithField("address", address).Debug("Dialing BLE device...")
	client, err := ble.Dial(connCtx, ble.NewAddr(address))
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return connectFailure(address, err)
	}

	c.logger.WithField("address", address).Debug("Discovering services and characteristics...")
	bleProfile, err := client.DiscoverProfile(true)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to discover profile")
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			c.logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection during profile discovery failure")
		}
		return connectFailure(address, fmt.Errorf("failed to discover profile: %w", err))
	}

	// Populate services and characteristics from the BLE profile
	for _, bleSvc := range bleProfile.Services {
		svcUUID := device.NormalizeUUID(bleSvc.UUID.String())
		svc, ok := c.services.Get(svcUUID)
		if !ok {
			svc = &BLEService{
				uuid:            svcUUID,
				characteristics: orderedmap.New[string, *BLECharacteristic](),
			}
			c.services.Set(svcUUID, svc)
		}

		for _, bleChar := range bleSvc.Characteristics {
			charUUID := device.NormalizeUUID(bleChar.UUID.String())
			c.logger.WithFields(logrus.Fields{
				"service_uuid": svcUUID,
				"char_uuid":    charUUID,
			}).Debug("Found characteristic UUID")

			if existing, ok := svc.characteristics.Get(charUUID); ok {
				// Reconnecting - refresh the live handle
				existing.bleChar = bleChar
				continue
			}
			svc.characteristics.Set(charUUID, newCharacteristic(bleChar, c))
		}
	}

	c.client = client
	c.isConnected = true

	// Tie the connection lifecycle to the caller's context. WithCancelCause
	// lets the disconnect monitor propagate the drop reason to Err().
	c.ctx, c.cancel = context.WithCancelCause(ctx)

	// Watch the transport's disconnect channel so a remote drop closes Done()
	go func(disconnected <-chan struct{}, connCtx context.Context, cancel context.CancelCauseFunc) {
		select {
		case <-disconnected:
			c.logger.Warn("Transport reported disconnection, cancelling connection context")
			cancel(device.ErrNotConnected)
		case <-connCtx.Done():
		}
	}(client.Disconnected(), c.ctx, c.cancel)

	totalChars := 0
	for pair := c.services.Oldest(); pair != nil; pair = pair.Next() {
		totalChars += pair.Value.characteristics.Len()
	}
	c.logger.WithFields(logrus.Fields{
		"address":         address,
		"services":        c.services.Len(),
		"characteristics": totalChars,
	}).Info("BLE device connected successfully")
	return nil
}

// connectFailure wraps a connection establishment error so callers can match
// it with errors.Is(err, device.ErrConnectFailed).
func connectFailure(address string, err error) error {
	norm := NormalizeError(err)
	return fmt.Errorf("%w: device %q: %v", device.ErrConnectFailed, address, norm)
}

// Disconnect tears the connection down. Safe to call when already
// disconnected; the release itself happens at most once.
func (c *BLEConnection) Disconnect() error {
	c.connMutex.Lock()
	if c.client == nil || !c.isConnected {
		c.connMutex.Unlock()
		c.logger.Debug("Disconnect called but already disconnected")
		return nil
	}

	c.logger.WithField("services", c.services.Len()).Info("Disconnecting BLE device...")

	// Grab client and cancel func to release the lock before blocking calls
	client := c.client
	cancel := c.cancel

	// Snapshot subscribed characteristics to unsubscribe outside the lock
	var subscribed []*BLECharacteristic
	for pair := c.services.Oldest(); pair != nil; pair = pair.Next() {
		for cp := pair.Value.characteristics.Oldest(); cp != nil; cp = cp.Next() {
			if cp.Value.subscribed.Load() {
				subscribed = append(subscribed, cp.Value)
			}
		}
	}

	c.client = nil
	c.cancel = nil
	c.isConnected = false
	c.connMutex.Unlock()

	if cancel != nil {
		cancel(nil) // orderly disconnection, no error cause
	}

	var unsubscribeErrors []string
	for _, char := range subscribed {
		if err := char.unsubscribeWith(client); err != nil {
			unsubscribeErrors = append(unsubscribeErrors, fmt.Sprintf("%s: %v", char.uuid, err))
		}
	}
	if len(unsubscribeErrors) > 0 {
		c.logger.WithField("errors", strings.Join(unsubscribeErrors, "; ")).Warn("Failed to unsubscribe from some characteristics during disconnect")
	}

	// Finally disconnect the BLE client (network call) outside the lock
	disconnectErr := client.CancelConnection()
	if disconnectErr != nil {
		c.logger.WithField("error", disconnectErr).Warn("BLE device disconnected with errors")
	} else {
		c.logger.Info("BLE device disconnected successfully")
	}
	return NormalizeError(disconnectErr)
}

// IsConnected returns connection status
func (c *BLEConnection) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.isConnectedInternal()
}

// isConnectedInternal checks status without acquiring locks.
// Caller must hold connMutex.
func (c *BLEConnection) isConnectedInternal() bool {
	return c.client != nil && c.isConnected
}

// Done implements device.Connection.
func (c *BLEConnection) Done() <-chan struct{} {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.ctx.Done()
}

// Err implements device.Connection. Returns nil for an orderly disconnect.
func (c *BLEConnection) Err() error {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	cause := context.Cause(c.ctx)
	if cause == nil || cause == context.Canceled {
		return nil
	}
	return cause
}

// Services returns all discovered BLE services in GATT discovery order.
func (c *BLEConnection) Services() []device.Service {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()

	result := make([]device.Service, 0, c.services.Len())
	for pair := c.services.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// GetService retrieves a specific service by its UUID.
// The UUID is normalized for consistent lookup (lowercase, no dashes).
func (c *BLEConnection) GetService(uuid string) (device.Service, error) {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()

	svc, ok := c.services.Get(device.NormalizeUUID(uuid))
	if !ok {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{uuid}}
	}
	return svc, nil
}

// GetCharacteristic retrieves a characteristic by service and characteristic UUID.
// Both UUIDs are normalized for consistent lookup. Returns a NotFoundError if
// the service or characteristic is not found.
func (c *BLEConnection) GetCharacteristic(service, uuid string) (device.Characteristic, error) {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()

	svc, ok := c.services.Get(device.NormalizeUUID(service))
	if !ok {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{service}}
	}
	char, ok := svc.characteristics.Get(device.NormalizeUUID(uuid))
	if !ok {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{service, uuid}}
	}
	return char, nil
}

// clientSnapshot returns the live client or ErrNotConnected.
func (c *BLEConnection) clientSnapshot() (ble.Client, error) {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	if !c.isConnectedInternal() {
		return nil, device.ErrNotConnected
	}
	return c.client, nil
}

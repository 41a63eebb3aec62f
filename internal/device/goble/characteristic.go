package goble

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-ble/ble"

	"github.com/maxime1992/idasen-controller/internal/device"
)

// DefaultReadTimeout is the default timeout for characteristic read operations.
// This prevents indefinite blocking if a device becomes unresponsive during a read.
const DefaultReadTimeout = 5 * time.Second

// BLECharacteristic implements device.Characteristic over a go-ble handle.
type BLECharacteristic struct {
	uuid       string
	bleChar    *ble.Characteristic
	connection *BLEConnection
	subscribed atomic.Bool
}

func newCharacteristic(c *ble.Characteristic, conn *BLEConnection) *BLECharacteristic {
	return &BLECharacteristic{
		uuid:       device.NormalizeUUID(c.UUID.String()),
		bleChar:    c,
		connection: conn,
	}
}

func (c *BLECharacteristic) UUID() string {
	return c.uuid
}

func (c *BLECharacteristic) CanNotify() bool {
	return c.bleChar.Property&(ble.CharNotify|ble.CharIndicate) != 0
}

type readResult struct {
	data []byte
	err  error
}

// Read reads the characteristic value, bounded by timeout.
func (c *BLECharacteristic) Read(timeout time.Duration) ([]byte, error) {
	client, err := c.connection.clientSnapshot()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	// go-ble reads have no context parameter; bound them ourselves. A read
	// that outlives the timer keeps its goroutine until the transport returns,
	// which the buffered channel absorbs.
	resCh := make(chan readResult, 1)
	go func() {
		data, readErr := client.ReadCharacteristic(c.bleChar)
		resCh <- readResult{data: data, err: NormalizeError(readErr)}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, fmt.Errorf("failed to read characteristic %s: %w", c.uuid, res.err)
		}
		return res.data, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("read characteristic %s: %w", c.uuid, device.ErrTimeout)
	}
}

// Write writes data to the characteristic in ATT-MTU-sized chunks.
// Writes are serialized per connection; timeout bounds the whole operation.
func (c *BLECharacteristic) Write(data []byte, withResponse bool, timeout time.Duration) error {
	client, err := c.connection.clientSnapshot()
	if err != nil {
		return err
	}

	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	c.connection.writeMutex.Lock()
	defer c.connection.writeMutex.Unlock()

	for len(data) > 0 {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("write characteristic %s: %w", c.uuid, device.ErrTimeout)
		}
		n := len(data)
		if n > DefaultBLEWriteChunkSize {
			n = DefaultBLEWriteChunkSize
		}
		if err := client.WriteCharacteristic(c.bleChar, data[:n], !withResponse); err != nil {
			return fmt.Errorf("failed to write characteristic %s: %w", c.uuid, NormalizeError(err))
		}
		data = data[n:]
		if len(data) > 0 {
			time.Sleep(DefaultBLEWriteDelay)
		}
	}
	return nil
}

// Subscribe registers handler for notifications on this characteristic.
func (c *BLECharacteristic) Subscribe(handler func(data []byte)) error {
	client, err := c.connection.clientSnapshot()
	if err != nil {
		return err
	}
	if !c.CanNotify() {
		return fmt.Errorf("characteristic %s: notifications: %w", c.uuid, device.ErrUnsupported)
	}
	if !c.subscribed.CompareAndSwap(false, true) {
		return fmt.Errorf("characteristic %s is already subscribed", c.uuid)
	}

	indicate := c.bleChar.Property&ble.CharNotify == 0
	if err := client.Subscribe(c.bleChar, indicate, func(req []byte) {
		handler(req)
	}); err != nil {
		c.subscribed.Store(false)
		return fmt.Errorf("failed to subscribe to characteristic %s: %w", c.uuid, NormalizeError(err))
	}

	c.connection.logger.WithField("char_uuid", c.uuid).Debug("Subscribed to characteristic notifications")
	return nil
}

// Unsubscribe releases the notification handler.
func (c *BLECharacteristic) Unsubscribe() error {
	client, err := c.connection.clientSnapshot()
	if err != nil {
		return err
	}
	return c.unsubscribeWith(client)
}

// unsubscribeWith attempts both notify and indicate modes; fails only when
// both fail. Used by Disconnect, which has already detached the client.
func (c *BLECharacteristic) unsubscribeWith(client ble.Client) error {
	if !c.subscribed.CompareAndSwap(true, false) {
		return nil
	}

	err1 := NormalizeError(client.Unsubscribe(c.bleChar, false)) // notify
	err2 := NormalizeError(client.Unsubscribe(c.bleChar, true))  // indicate
	if err1 != nil && err2 != nil {
		return fmt.Errorf("unsubscribe %s: notify=%v, indicate=%v", c.uuid, err1, err2)
	}
	return nil
}

// Package testutils provides fake BLE peripherals, scanners and
// advertisements for exercising the device abstraction without hardware.
package testutils

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxime1992/idasen-controller/internal/device"
)

// FakeCharacteristic is a scripted device.Characteristic. Reads consume the
// queued values in order and repeat the last one; writes are recorded and
// mirrored onto WriteCh so tests can synchronize on them.
type FakeCharacteristic struct {
	uuid   string
	notify bool

	mu           sync.Mutex
	reads        [][]byte
	readErr      error
	writeErr     error
	subscribeErr error
	writes       [][]byte
	handler      func(data []byte)

	// WriteCh receives a copy of every written value. Buffered so writers
	// never block; tests that stop draining simply miss late writes.
	WriteCh chan []byte

	subscribed chan struct{}
}

func newFakeCharacteristic(uuid string, notify bool) *FakeCharacteristic {
	return &FakeCharacteristic{
		uuid:       uuid,
		notify:     notify,
		WriteCh:    make(chan []byte, 64),
		subscribed: make(chan struct{}, 1),
	}
}

// UUID returns the characteristic UUID in normalized form.
func (c *FakeCharacteristic) UUID() string { return c.uuid }

// CanNotify reports whether the characteristic was scripted as notifying.
func (c *FakeCharacteristic) CanNotify() bool { return c.notify }

// QueueRead appends a value to the read script.
func (c *FakeCharacteristic) QueueRead(data []byte) *FakeCharacteristic {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = append(c.reads, data)
	return c
}

// SetReadError makes all reads fail with err.
func (c *FakeCharacteristic) SetReadError(err error) { c.mu.Lock(); c.readErr = err; c.mu.Unlock() }

// SetWriteError makes all writes fail with err.
func (c *FakeCharacteristic) SetWriteError(err error) { c.mu.Lock(); c.writeErr = err; c.mu.Unlock() }

// SetSubscribeError makes Subscribe fail with err.
func (c *FakeCharacteristic) SetSubscribeError(err error) {
	c.mu.Lock()
	c.subscribeErr = err
	c.mu.Unlock()
}

// Read pops the next scripted value; the final value repeats once the script
// runs out.
func (c *FakeCharacteristic) Read(_ time.Duration) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	if len(c.reads) == 0 {
		return nil, device.ErrTimeout
	}
	data := c.reads[0]
	if len(c.reads) > 1 {
		c.reads = c.reads[1:]
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write records data and signals WriteCh.
func (c *FakeCharacteristic) Write(data []byte, _ bool, _ time.Duration) error {
	c.mu.Lock()
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}
	rec := make([]byte, len(data))
	copy(rec, data)
	c.writes = append(c.writes, rec)
	c.mu.Unlock()

	select {
	case c.WriteCh <- rec:
	default:
	}
	return nil
}

// Writes returns a snapshot of all recorded writes.
func (c *FakeCharacteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// Subscribe installs handler and signals WaitSubscribed.
func (c *FakeCharacteristic) Subscribe(handler func(data []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	c.handler = handler
	select {
	case c.subscribed <- struct{}{}:
	default:
	}
	return nil
}

// Unsubscribe removes the installed handler.
func (c *FakeCharacteristic) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = nil
	return nil
}

// Notify delivers data to the subscribed handler, reporting whether a handler
// was installed.
func (c *FakeCharacteristic) Notify(data []byte) bool {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(data)
	return true
}

// WaitSubscribed blocks until Subscribe is called or the timeout elapses.
func (c *FakeCharacteristic) WaitSubscribed(timeout time.Duration) bool {
	select {
	case <-c.subscribed:
		return true
	case <-time.After(timeout):
		return false
	}
}

// WaitWrite blocks until a write arrives or the timeout elapses.
func (c *FakeCharacteristic) WaitWrite(timeout time.Duration) ([]byte, bool) {
	select {
	case data := <-c.WriteCh:
		return data, true
	case <-time.After(timeout):
		return nil, false
	}
}

// FakeService groups fake characteristics under a service UUID.
type FakeService struct {
	uuid  string
	chars []*FakeCharacteristic
}

// UUID returns the service UUID in normalized form.
func (s *FakeService) UUID() string { return s.uuid }

// Characteristics returns the service characteristics in insertion order.
func (s *FakeService) Characteristics() []device.Characteristic {
	out := make([]device.Characteristic, len(s.chars))
	for i, c := range s.chars {
		out[i] = c
	}
	return out
}

// FakePeripheral is an in-memory device.Device and device.Connection with
// open/close accounting and an injectable connect failure.
type FakePeripheral struct {
	address string
	name    string

	connectCalls    atomic.Int32
	disconnectCalls atomic.Int32

	mu         sync.Mutex
	connected  bool
	connectErr error
	services   []*FakeService
	done       chan struct{}
	doneErr    error
}

// NewFakePeripheral creates a disconnected fake with no GATT profile.
func NewFakePeripheral(address string) *FakePeripheral {
	return &FakePeripheral{
		address: address,
		name:    "fake-" + address,
		done:    make(chan struct{}),
	}
}

// WithName sets the advertised name.
func (p *FakePeripheral) WithName(name string) *FakePeripheral {
	p.name = name
	return p
}

// WithConnectError makes Connect fail with err while still counting the call.
func (p *FakePeripheral) WithConnectError(err error) *FakePeripheral {
	p.mu.Lock()
	p.connectErr = err
	p.mu.Unlock()
	return p
}

// AddCharacteristic registers a characteristic, creating its service on first
// use, and returns it for scripting.
func (p *FakePeripheral) AddCharacteristic(serviceUUID, charUUID string, notify bool) *FakeCharacteristic {
	p.mu.Lock()
	defer p.mu.Unlock()

	char := newFakeCharacteristic(charUUID, notify)
	for _, svc := range p.services {
		if svc.uuid == serviceUUID {
			svc.chars = append(svc.chars, char)
			return char
		}
	}
	p.services = append(p.services, &FakeService{uuid: serviceUUID, chars: []*FakeCharacteristic{char}})
	return char
}

// ConnectCalls reports how many times Connect was invoked.
func (p *FakePeripheral) ConnectCalls() int { return int(p.connectCalls.Load()) }

// DisconnectCalls reports how many times Disconnect was invoked.
func (p *FakePeripheral) DisconnectCalls() int { return int(p.disconnectCalls.Load()) }

// DropConnection simulates a transport-level drop with the given cause.
func (p *FakePeripheral) DropConnection(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return
	}
	p.connected = false
	p.doneErr = cause
	close(p.done)
}

// DeviceInfo

func (p *FakePeripheral) ID() string                  { return p.address }
func (p *FakePeripheral) Name() string                { return p.name }
func (p *FakePeripheral) Address() string             { return p.address }
func (p *FakePeripheral) RSSI() int                   { return -42 }
func (p *FakePeripheral) TxPower() *int               { return nil }
func (p *FakePeripheral) IsConnectable() bool         { return true }
func (p *FakePeripheral) AdvertisedServices() []string { return nil }
func (p *FakePeripheral) ManufacturerData() []byte    { return nil }
func (p *FakePeripheral) LastSeen() time.Time         { return time.Time{} }

// Device

// Connect marks the peripheral connected, or fails with the scripted error.
func (p *FakePeripheral) Connect(_ context.Context, _ *device.ConnectOptions) error {
	p.connectCalls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connectErr != nil {
		return p.connectErr
	}
	if p.connected {
		return device.ErrAlreadyConnected
	}
	p.connected = true
	p.done = make(chan struct{})
	p.doneErr = nil
	return nil
}

// Disconnect releases the connection; safe to call when never connected.
func (p *FakePeripheral) Disconnect() error {
	p.disconnectCalls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		p.connected = false
		close(p.done)
	}
	return nil
}

func (p *FakePeripheral) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *FakePeripheral) Update(_ device.Advertisement) {}

func (p *FakePeripheral) Connection() device.Connection { return p }

// Connection

func (p *FakePeripheral) Services() []device.Service {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]device.Service, len(p.services))
	for i, s := range p.services {
		out[i] = s
	}
	return out
}

func (p *FakePeripheral) GetService(uuid string) (device.Service, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, svc := range p.services {
		if svc.uuid == uuid {
			return svc, nil
		}
	}
	return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{uuid}}
}

func (p *FakePeripheral) GetCharacteristic(service, uuid string) (device.Characteristic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, svc := range p.services {
		if svc.uuid != service {
			continue
		}
		for _, char := range svc.chars {
			if char.uuid == uuid {
				return char, nil
			}
		}
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{service, uuid}}
	}
	return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{service}}
}

func (p *FakePeripheral) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *FakePeripheral) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		return p.doneErr
	default:
		return nil
	}
}

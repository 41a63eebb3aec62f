package desk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxime1992/idasen-controller/internal/device"
	"github.com/maxime1992/idasen-controller/internal/ringchan"
)

// Desk-level errors
var (
	// ErrMovementInterrupted indicates the desk stopped moving while still out
	// of tolerance, which happens when the physical paddle is touched.
	ErrMovementInterrupted = errors.New("movement interrupted")

	// ErrNotADesk indicates the connected peripheral does not expose the Linak
	// height and command characteristics.
	ErrNotADesk = errors.New("device does not expose the desk control profile")
)

const (
	// resendInterval is how many height notifications pass between re-sent
	// movement commands. A single command runs the motor for about a second
	// (~16 notifications); re-sending on the 6th balances overshoot against
	// motor stutter.
	resendInterval = 6

	// stallThreshold is how many consecutive zero-speed notifications mark the
	// desk as externally stopped. The very first notification after a command
	// can legitimately carry speed 0, so one is not enough.
	stallThreshold = 2
)

// settleDelay is how long to wait after movement stops before reading the
// final height; the last notifications lag the physical desk slightly.
var settleDelay = time.Second

// Options tunes desk behavior.
type Options struct {
	// HeightToleranceMM is the distance between reported and target height at
	// which movement stops, in millimeters.
	HeightToleranceMM float64

	// MovementTimeout bounds a single MoveTo operation.
	MovementTimeout time.Duration

	// CommandTimeout bounds individual reads and writes.
	CommandTimeout time.Duration

	// StopBothChannels makes Stop also write the reference-input stop command,
	// emulating the vendor app. The desk rejects this on some platforms, so it
	// defaults to Linux only.
	StopBothChannels bool
}

// DefaultOptions returns desk options matching the vendor app's behavior.
func DefaultOptions() *Options {
	return &Options{
		HeightToleranceMM: 2.0,
		MovementTimeout:   30 * time.Second,
		CommandTimeout:    5 * time.Second,
		StopBothChannels:  runtime.GOOS == "linux",
	}
}

// Desk drives a connected Idasen desk through its GATT characteristics.
type Desk struct {
	dev    device.Device
	conn   device.Connection
	logger *logrus.Logger
	opts   Options

	heightChar   device.Characteristic
	commandChar  device.Characteristic
	refInputChar device.Characteristic // may be nil on firmwares without it
}

// Attach binds desk control to an already connected device.
// Returns ErrNotADesk when the height or command characteristic is missing.
func Attach(dev device.Device, opts *Options, logger *logrus.Logger) (*Desk, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	conn := dev.Connection()
	if conn == nil || !dev.IsConnected() {
		return nil, device.ErrNotConnected
	}

	d := &Desk{
		dev:    dev,
		conn:   conn,
		logger: logger,
		opts:   *opts,
	}

	var err error
	if d.heightChar, err = conn.GetCharacteristic(ServiceReferenceOutput, CharHeight); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotADesk, err)
	}
	if d.commandChar, err = conn.GetCharacteristic(ServiceControl, CharCommand); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotADesk, err)
	}
	// Reference input is optional; Stop degrades gracefully without it.
	d.refInputChar, _ = conn.GetCharacteristic(ServiceReferenceInput, CharReferenceInput)

	return d, nil
}

// Device returns the underlying peripheral.
func (d *Desk) Device() device.Device {
	return d.dev
}

// Height reads the current height/speed sample.
func (d *Desk) Height() (HeightSpeed, error) {
	data, err := d.heightChar.Read(d.opts.CommandTimeout)
	if err != nil {
		return HeightSpeed{}, fmt.Errorf("failed to read desk height: %w", err)
	}
	return DecodeHeightSpeed(data)
}

// MoveUp sends a single up command; the motor runs for about a second.
func (d *Desk) MoveUp() error {
	return d.writeCommand(d.commandChar, commandUp)
}

// MoveDown sends a single down command.
func (d *Desk) MoveDown() error {
	return d.writeCommand(d.commandChar, commandDown)
}

// Stop halts movement. The vendor app sends stop to both the command and the
// reference-input characteristic, so do the same where the desk accepts it.
func (d *Desk) Stop() error {
	err := d.writeCommand(d.commandChar, commandStop)
	if d.opts.StopBothChannels && d.refInputChar != nil {
		if refErr := d.writeCommand(d.refInputChar, referenceInputStop); refErr != nil && err == nil {
			err = refErr
		}
	}
	return err
}

func (d *Desk) writeCommand(char device.Characteristic, code uint16) error {
	return char.Write(EncodeCommand(code), true, d.opts.CommandTimeout)
}

// toleranceRaw converts the configured tolerance to raw units.
func (d *Desk) toleranceRaw() int {
	return int(d.opts.HeightToleranceMM * 10)
}

// reached reports whether height is within tolerance of target. The notified
// values lag the desk slightly, so stopping just inside the tolerance band
// prevents overshooting.
func (d *Desk) reached(height, target uint16) bool {
	diff := int(height) - int(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= d.toleranceRaw()
}

// subscribeHeight funnels height notifications into a bounded channel so the
// caller consumes them at its own pace; a stale sample is worthless anyway.
func (d *Desk) subscribeHeight() (*ringchan.RingChannel[HeightSpeed], error) {
	ring := ringchan.New[HeightSpeed](32)
	err := d.heightChar.Subscribe(func(data []byte) {
		hs, decodeErr := DecodeHeightSpeed(data)
		if decodeErr != nil {
			d.logger.WithError(decodeErr).Warn("Dropping malformed height notification")
			return
		}
		ring.Send(hs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to height notifications: %w", err)
	}
	return ring, nil
}

// Monitor streams height changes to out until ctx is cancelled or the
// connection drops.
func (d *Desk) Monitor(ctx context.Context, out io.Writer) error {
	ring, err := d.subscribeHeight()
	if err != nil {
		return err
	}
	defer func() {
		if err := d.heightChar.Unsubscribe(); err != nil {
			d.logger.WithError(err).Debug("Failed to unsubscribe from height notifications")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.conn.Done():
			return d.conn.Err()
		case hs := <-ring.C():
			fmt.Fprintf(out, "Height: %4.0fmm Speed: %2.0fmm/s\n", hs.Millimeters(), hs.SpeedMMPerSec())
		}
	}
}

package desk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxime1992/idasen-controller/internal/device"
)

type direction int

const (
	directionUp direction = iota
	directionDown
)

func (dir direction) String() string {
	if dir == directionUp {
		return "UP"
	}
	return "DOWN"
}

// MoveTo drives the desk to target (raw units) and blocks until it arrives,
// the movement times out, the desk is stopped externally, or ctx is cancelled.
// Progress lines are written to out.
func (d *Desk) MoveTo(ctx context.Context, target uint16, out io.Writer) error {
	initial, err := d.Height()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Height: %4.0fmm\n", initial.Millimeters())

	if d.reached(initial.RawHeight, target) {
		d.logger.WithFields(logrus.Fields{
			"height": initial.Millimeters(),
			"target": RawToMM(target),
		}).Info("Desk already at target height")
		return nil
	}

	dir := directionDown
	if target > initial.RawHeight {
		dir = directionUp
	}
	d.logger.WithFields(logrus.Fields{
		"height":    initial.Millimeters(),
		"target":    RawToMM(target),
		"direction": dir,
	}).Info("Starting desk movement")

	moveCtx, cancel := context.WithTimeout(ctx, d.opts.MovementTimeout)
	defer cancel()

	ring, err := d.subscribeHeight()
	if err != nil {
		return err
	}
	defer func() {
		if err := d.heightChar.Unsubscribe(); err != nil {
			d.logger.WithError(err).Debug("Failed to unsubscribe from height notifications")
		}
	}()

	if err := d.move(dir); err != nil {
		return err
	}

	var moveErr error
	count := 0
	zeroSpeed := 0

loop:
	for {
		select {
		case <-moveCtx.Done():
			// Best-effort halt; the motor keeps running for up to a second
			// after the last command otherwise.
			if stopErr := d.Stop(); stopErr != nil {
				d.logger.WithError(stopErr).Warn("Failed to stop desk after movement ended")
			}
			if ctx.Err() != nil {
				moveErr = ctx.Err()
			} else if errors.Is(moveCtx.Err(), context.DeadlineExceeded) {
				moveErr = fmt.Errorf("timed out while waiting for desk: %w", device.ErrTimeout)
			}
			break loop

		case <-d.conn.Done():
			moveErr = d.conn.Err()
			if moveErr == nil {
				moveErr = device.ErrNotConnected
			}
			break loop

		case hs := <-ring.C():
			count++
			fmt.Fprintf(out, "Height: %4.0fmm Target: %4.0fmm Speed: %2.0fmm/s\n",
				hs.Millimeters(), RawToMM(target), hs.SpeedMMPerSec())

			if d.reached(hs.RawHeight, target) {
				if stopErr := d.Stop(); stopErr != nil {
					d.logger.WithError(stopErr).Warn("Failed to stop desk at target height")
				}
				break loop
			}

			// Touching the physical paddle silences the motor while we are
			// still out of tolerance; repeated zero-speed samples reveal it.
			if hs.RawSpeed == 0 && count > 1 {
				zeroSpeed++
				if zeroSpeed >= stallThreshold {
					moveErr = ErrMovementInterrupted
					break loop
				}
			} else {
				zeroSpeed = 0
			}

			if count%resendInterval == 0 {
				if err := d.move(dir); err != nil {
					moveErr = err
					break loop
				}
			}
		}
	}

	if moveErr != nil {
		return moveErr
	}

	// Give the desk a moment to settle, then report where it actually stopped.
	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	final, err := d.Height()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Final height: %4.0fmm Target: %4.0fmm\n", final.Millimeters(), RawToMM(target))
	return nil
}

func (d *Desk) move(dir direction) error {
	if dir == directionUp {
		return d.MoveUp()
	}
	return d.MoveDown()
}

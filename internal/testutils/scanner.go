package testutils

import (
	"context"
	"time"

	"github.com/maxime1992/idasen-controller/internal/device"
)

// FakeAdvertisement is a scripted device.Advertisement.
type FakeAdvertisement struct {
	name        string
	addr        string
	rssi        int
	txPower     int
	connectable bool
	services    []string
	mfrData     []byte
}

// NewFakeAdvertisement creates an advertisement for the given address.
func NewFakeAdvertisement(addr string) *FakeAdvertisement {
	return &FakeAdvertisement{
		addr:        addr,
		rssi:        -40,
		txPower:     127, // unavailable
		connectable: true,
	}
}

func (a *FakeAdvertisement) WithName(name string) *FakeAdvertisement {
	a.name = name
	return a
}

func (a *FakeAdvertisement) WithRSSI(rssi int) *FakeAdvertisement {
	a.rssi = rssi
	return a
}

func (a *FakeAdvertisement) WithServices(uuids ...string) *FakeAdvertisement {
	a.services = uuids
	return a
}

func (a *FakeAdvertisement) WithManufacturerData(data []byte) *FakeAdvertisement {
	a.mfrData = data
	return a
}

func (a *FakeAdvertisement) LocalName() string        { return a.name }
func (a *FakeAdvertisement) ManufacturerData() []byte { return a.mfrData }
func (a *FakeAdvertisement) Services() []string       { return a.services }
func (a *FakeAdvertisement) TxPowerLevel() int        { return a.txPower }
func (a *FakeAdvertisement) Connectable() bool        { return a.connectable }
func (a *FakeAdvertisement) RSSI() int                { return a.rssi }
func (a *FakeAdvertisement) Addr() string             { return a.addr }

// FakeScanner replays a fixed advertisement script. Each Scan delivers the
// whole script once, then blocks until ctx ends, mimicking a quiet radio.
type FakeScanner struct {
	advertisements []device.Advertisement

	// Repeat re-delivers the script on a short interval until ctx ends,
	// for exercising duplicate handling.
	Repeat bool

	// ScanErr fails Scan immediately when set.
	ScanErr error
}

// NewFakeScanner creates a scanner replaying the given advertisements.
func NewFakeScanner(advs ...device.Advertisement) *FakeScanner {
	return &FakeScanner{advertisements: advs}
}

// Scan implements device.Scanner.
func (s *FakeScanner) Scan(ctx context.Context, _ bool, handler func(device.Advertisement)) error {
	if s.ScanErr != nil {
		return s.ScanErr
	}
	for {
		for _, adv := range s.advertisements {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			handler(adv)
		}
		if !s.Repeat {
			<-ctx.Done()
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

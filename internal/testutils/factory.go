package testutils

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/maxime1992/idasen-controller/internal/device"
	"github.com/maxime1992/idasen-controller/internal/devicefactory"
)

// FactoryCapture records the loggers handed to the device factory, so tests
// can assert on the logging configuration in effect at construction time.
type FactoryCapture struct {
	mu      sync.Mutex
	loggers []*logrus.Logger
}

// LoggerLevels returns the level of each captured logger in call order.
func (fc *FactoryCapture) LoggerLevels() []logrus.Level {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	levels := make([]logrus.Level, len(fc.loggers))
	for i, l := range fc.loggers {
		levels[i] = l.GetLevel()
	}
	return levels
}

// InstallPeripheral routes devicefactory.NewDevice to p for the duration of
// the test, restoring the real factory on cleanup.
func InstallPeripheral(t *testing.T, p *FakePeripheral) *FactoryCapture {
	t.Helper()

	capture := &FactoryCapture{}
	prev := devicefactory.NewDevice
	devicefactory.NewDevice = func(_ string, logger *logrus.Logger) device.Device {
		capture.mu.Lock()
		capture.loggers = append(capture.loggers, logger)
		capture.mu.Unlock()
		return p
	}
	t.Cleanup(func() { devicefactory.NewDevice = prev })
	return capture
}

// InstallScanner routes devicefactory.ScannerFactory to s for the duration of
// the test, restoring the real factory on cleanup.
func InstallScanner(t *testing.T, s device.Scanner) {
	t.Helper()

	prev := devicefactory.ScannerFactory
	devicefactory.ScannerFactory = func() (device.Scanner, error) {
		return s, nil
	}
	t.Cleanup(func() { devicefactory.ScannerFactory = prev })
}

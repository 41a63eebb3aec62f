package desk

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxime1992/idasen-controller/internal/device"
	"github.com/maxime1992/idasen-controller/internal/testutils"
)

const testAddress = "E8:5B:5B:24:22:E4"

func sessionTestOptions() *SessionOptions {
	return &SessionOptions{
		Address:        testAddress,
		ConnectTimeout: time.Second,
		ScanTimeout:    100 * time.Millisecond,
		SkipScan:       true,
	}
}

func TestRun_SuccessReleasesExactlyOnce(t *testing.T) {
	// GOAL: Verify a successful session acquires and releases the device
	// exactly once, with the callback running in between.
	helper := testutils.NewTestHelper(t)
	p, _ := testutils.NewFakeDesk(testAddress)
	testutils.InstallPeripheral(t, p)

	result, err := Run(context.Background(), sessionTestOptions(), testOptions(), helper.Logger, nil,
		func(d *Desk) (string, error) {
			assert.True(t, d.Device().IsConnected(), "callback MUST see a connected desk")
			return "ok", nil
		})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, p.ConnectCalls())
	assert.Equal(t, 1, p.DisconnectCalls())
	assert.False(t, p.IsConnected(), "device MUST be released after the session")
}

func TestRun_FailedConnectStillReleases(t *testing.T) {
	// GOAL: Verify the device is released even when establishment fails, so
	// transport resources are returned on every exit path.
	helper := testutils.NewTestHelper(t)
	p, _ := testutils.NewFakeDesk(testAddress)
	p.WithConnectError(device.ErrConnectFailed)
	testutils.InstallPeripheral(t, p)

	callbackRan := false
	_, err := Run(context.Background(), sessionTestOptions(), testOptions(), helper.Logger, nil,
		func(d *Desk) (string, error) {
			callbackRan = true
			return "", nil
		})

	assert.ErrorIs(t, err, device.ErrConnectFailed)
	assert.False(t, callbackRan, "callback MUST NOT run without a connection")
	assert.Equal(t, 1, p.ConnectCalls())
	assert.Equal(t, 1, p.DisconnectCalls())
}

func TestRun_CallbackErrorPropagatesAndReleases(t *testing.T) {
	helper := testutils.NewTestHelper(t)
	p, _ := testutils.NewFakeDesk(testAddress)
	testutils.InstallPeripheral(t, p)

	wantErr := errors.New("callback failed")
	_, err := Run(context.Background(), sessionTestOptions(), testOptions(), helper.Logger, nil,
		func(d *Desk) (string, error) {
			return "", wantErr
		})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, p.DisconnectCalls())
}

func TestRun_AttachFailureStillReleases(t *testing.T) {
	helper := testutils.NewTestHelper(t)
	// Connectable peripheral that is not a desk.
	p := testutils.NewFakePeripheral(testAddress)
	p.AddCharacteristic("180d", "2a37", true)
	testutils.InstallPeripheral(t, p)

	_, err := Run(context.Background(), sessionTestOptions(), testOptions(), helper.Logger, nil,
		func(d *Desk) (string, error) {
			return "", nil
		})

	assert.ErrorIs(t, err, ErrNotADesk)
	assert.Equal(t, 1, p.ConnectCalls())
	assert.Equal(t, 1, p.DisconnectCalls())
}

func TestRun_InvalidAddress(t *testing.T) {
	helper := testutils.NewTestHelper(t)
	p, _ := testutils.NewFakeDesk(testAddress)
	testutils.InstallPeripheral(t, p)

	opts := sessionTestOptions()
	opts.Address = "not-an-address"

	_, err := Run(context.Background(), opts, testOptions(), helper.Logger, nil,
		func(d *Desk) (string, error) {
			return "", nil
		})

	assert.Error(t, err)
	assert.Equal(t, 0, p.ConnectCalls(), "invalid address MUST fail before dialing")
	assert.Equal(t, 0, p.DisconnectCalls())
}

func TestRun_NilOptions(t *testing.T) {
	helper := testutils.NewTestHelper(t)

	_, err := Run(context.Background(), nil, testOptions(), helper.Logger, nil,
		func(d *Desk) (string, error) {
			return "", nil
		})
	assert.Error(t, err)
}

func TestRun_ScanResolvesDesk(t *testing.T) {
	helper := testutils.NewTestHelper(t)
	p, _ := testutils.NewFakeDesk(testAddress)
	testutils.InstallPeripheral(t, p)
	testutils.InstallScanner(t, testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement("AA:BB:CC:DD:EE:FF").WithName("SomethingElse"),
		testutils.NewFakeAdvertisement(testAddress).WithName("Desk 1234"),
	))

	opts := sessionTestOptions()
	opts.SkipScan = false

	var phases []string
	result, err := Run(context.Background(), opts, testOptions(), helper.Logger,
		func(phase string) { phases = append(phases, phase) },
		func(d *Desk) (string, error) {
			return "ok", nil
		})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, []string{"Scanning", "Connecting", "Connected", "Processing results"}, phases)
	assert.Equal(t, 1, p.DisconnectCalls())
}

func TestRun_ScanMissFailsWithoutDialing(t *testing.T) {
	helper := testutils.NewTestHelper(t)
	p, _ := testutils.NewFakeDesk(testAddress)
	testutils.InstallPeripheral(t, p)
	testutils.InstallScanner(t, testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement("AA:BB:CC:DD:EE:FF"),
	))

	opts := sessionTestOptions()
	opts.SkipScan = false

	_, err := Run(context.Background(), opts, testOptions(), helper.Logger, nil,
		func(d *Desk) (string, error) {
			return "", nil
		})

	assert.ErrorIs(t, err, device.ErrConnectFailed)
	assert.Equal(t, 0, p.ConnectCalls(), "a desk that never advertised MUST NOT be dialed")
	assert.Equal(t, 0, p.DisconnectCalls())
}

func TestRun_CacheHitSkipsScan(t *testing.T) {
	helper := testutils.NewTestHelper(t)
	p, _ := testutils.NewFakeDesk(testAddress)
	testutils.InstallPeripheral(t, p)

	// A scanner that fails if consulted proves the cache short-circuits it.
	broken := testutils.NewFakeScanner()
	broken.ScanErr = errors.New("radio unavailable")
	testutils.InstallScanner(t, broken)

	cachePath := filepath.Join(t.TempDir(), "desk.cache.yaml")
	require.NoError(t, SaveCache(cachePath, p))

	opts := sessionTestOptions()
	opts.SkipScan = false
	opts.CachePath = cachePath

	_, err := Run(context.Background(), opts, testOptions(), helper.Logger, nil,
		func(d *Desk) (string, error) {
			return "", nil
		})

	assert.NoError(t, err)
	assert.Equal(t, 1, p.ConnectCalls())
	assert.Equal(t, 1, p.DisconnectCalls())
}

func TestRun_WritesCacheAfterConnect(t *testing.T) {
	helper := testutils.NewTestHelper(t)
	p, _ := testutils.NewFakeDesk(testAddress)
	testutils.InstallPeripheral(t, p)

	cachePath := filepath.Join(t.TempDir(), "desk.cache.yaml")
	opts := sessionTestOptions()
	opts.CachePath = cachePath

	_, err := Run(context.Background(), opts, testOptions(), helper.Logger, nil,
		func(d *Desk) (string, error) {
			return "", nil
		})
	require.NoError(t, err)

	cached, err := LoadCache(cachePath)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, testAddress, cached.Address)
}

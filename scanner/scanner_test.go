package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxime1992/idasen-controller/internal/device"
	"github.com/maxime1992/idasen-controller/internal/testutils"
)

func testScanner(t *testing.T) *Scanner {
	t.Helper()
	helper := testutils.NewTestHelper(t)
	s, err := NewScanner(helper.Logger)
	require.NoError(t, err)
	return s
}

func scanOpts(d time.Duration) *ScanOptions {
	return &ScanOptions{Duration: d, DuplicateFilter: true}
}

func TestScan_CollectsDevices(t *testing.T) {
	testutils.InstallScanner(t, testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement("E8:5B:5B:24:22:E4").WithName("Desk 1234").WithRSSI(-55),
		testutils.NewFakeAdvertisement("AA:BB:CC:DD:EE:FF").WithName("Headphones"),
	))

	devices, err := testScanner(t).Scan(context.Background(), scanOpts(50*time.Millisecond), nil)
	require.NoError(t, err)

	require.Len(t, devices, 2)
	desk, ok := devices["E8:5B:5B:24:22:E4"]
	require.True(t, ok)
	assert.Equal(t, "Desk 1234", desk.Device.Name())
	assert.Equal(t, -55, desk.Device.RSSI())
}

func TestScan_UpdatesExistingDevice(t *testing.T) {
	fake := testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement("E8:5B:5B:24:22:E4").WithName("Desk 1234").WithRSSI(-60),
		testutils.NewFakeAdvertisement("E8:5B:5B:24:22:E4").WithName("Desk 1234").WithRSSI(-48),
	)
	testutils.InstallScanner(t, fake)

	devices, err := testScanner(t).Scan(context.Background(), scanOpts(50*time.Millisecond), nil)
	require.NoError(t, err)

	require.Len(t, devices, 1)
	assert.Equal(t, -48, devices["E8:5B:5B:24:22:E4"].Device.RSSI(), "later advertisement MUST refresh the device")
}

func TestScan_LowercaseAddressesAreNormalized(t *testing.T) {
	testutils.InstallScanner(t, testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement("e8:5b:5b:24:22:e4"),
	))

	devices, err := testScanner(t).Scan(context.Background(), scanOpts(50*time.Millisecond), nil)
	require.NoError(t, err)

	_, ok := devices["E8:5B:5B:24:22:E4"]
	assert.True(t, ok, "device keys MUST be uppercased addresses")
}

func TestScan_Filters(t *testing.T) {
	advs := []struct {
		addr     string
		services []string
	}{
		{addr: "E8:5B:5B:24:22:E4", services: []string{"99fa0001338a10248a49009c0215f78a"}},
		{addr: "AA:BB:CC:DD:EE:FF", services: []string{"180d"}},
		{addr: "11:22:33:44:55:66"},
	}

	tests := []struct {
		name     string
		opts     *ScanOptions
		expected []string
	}{
		{
			name:     "allow list",
			opts:     &ScanOptions{AllowList: []string{"e8:5b:5b:24:22:e4"}},
			expected: []string{"E8:5B:5B:24:22:E4"},
		},
		{
			name:     "block list",
			opts:     &ScanOptions{BlockList: []string{"AA:BB:CC:DD:EE:FF"}},
			expected: []string{"E8:5B:5B:24:22:E4", "11:22:33:44:55:66"},
		},
		{
			name:     "service filter",
			opts:     &ScanOptions{ServiceUUIDs: []string{"99fa0001338a10248a49009c0215f78a"}},
			expected: []string{"E8:5B:5B:24:22:E4"},
		},
		{
			name:     "no filters",
			opts:     &ScanOptions{},
			expected: []string{"E8:5B:5B:24:22:E4", "AA:BB:CC:DD:EE:FF", "11:22:33:44:55:66"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list []device.Advertisement
			for _, a := range advs {
				list = append(list, testutils.NewFakeAdvertisement(a.addr).WithServices(a.services...))
			}
			testutils.InstallScanner(t, testutils.NewFakeScanner(list...))

			tt.opts.Duration = 50 * time.Millisecond
			devices, err := testScanner(t).Scan(context.Background(), tt.opts, nil)
			require.NoError(t, err)

			assert.Len(t, devices, len(tt.expected))
			for _, addr := range tt.expected {
				_, ok := devices[addr]
				assert.True(t, ok, "expected %s in scan results", addr)
			}
		})
	}
}

func TestFindDevice_StopsEarly(t *testing.T) {
	fake := testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement("AA:BB:CC:DD:EE:FF"),
		testutils.NewFakeAdvertisement("E8:5B:5B:24:22:E4").WithName("Desk 1234"),
	)
	fake.Repeat = true
	testutils.InstallScanner(t, fake)

	start := time.Now()
	found, err := testScanner(t).FindDevice(context.Background(), "e8:5b:5b:24:22:e4", 5*time.Second)
	require.NoError(t, err)

	require.NotNil(t, found)
	assert.Equal(t, "E8:5B:5B:24:22:E4", found.Address())
	assert.Less(t, time.Since(start), time.Second, "FindDevice MUST stop as soon as the target shows up")
}

func TestFindDevice_NotSeen(t *testing.T) {
	testutils.InstallScanner(t, testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement("AA:BB:CC:DD:EE:FF"),
	))

	found, err := testScanner(t).FindDevice(context.Background(), "E8:5B:5B:24:22:E4", 50*time.Millisecond)
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestScan_EmitsEvents(t *testing.T) {
	testutils.InstallScanner(t, testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement("E8:5B:5B:24:22:E4").WithName("Desk 1234"),
	))

	s := testScanner(t)
	_, err := s.Scan(context.Background(), scanOpts(50*time.Millisecond), nil)
	require.NoError(t, err)

	select {
	case event := <-s.Events():
		assert.Equal(t, EventNew, event.Type)
		assert.Equal(t, "Desk 1234", event.DeviceInfo.Name())
	default:
		t.Fatal("expected a discovery event")
	}
}

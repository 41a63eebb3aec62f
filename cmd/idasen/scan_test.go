package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/maxime1992/idasen-controller/internal/testutils"
)

// ScanTestSuite tests the scan command
type ScanTestSuite struct {
	CommandTestSuite
}

func (suite *ScanTestSuite) TestScan_TableOutput() {
	testutils.InstallScanner(suite.T(), testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement(testDeskAddress).WithName("Desk 1234").WithRSSI(-55),
		testutils.NewFakeAdvertisement("AA:BB:CC:DD:EE:FF").WithName("Headphones").WithRSSI(-70),
	))

	out, err := suite.execute("scan", "-d", "50ms")

	suite.Assert().NoError(err)
	suite.Assert().Contains(out, "NAME")
	suite.Assert().Contains(out, "Desk 1234")
	suite.Assert().Contains(out, testDeskAddress)
	suite.Assert().Contains(out, "-55 dBm")
	suite.Assert().Contains(out, "Headphones")
}

func (suite *ScanTestSuite) TestScan_JSONOutput() {
	testutils.InstallScanner(suite.T(), testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement(testDeskAddress).
			WithName("Desk 1234").
			WithRSSI(-55).
			WithServices("99fa0001338a10248a49009c0215f78a"),
	))

	out, err := suite.execute("scan", "-d", "50ms", "--format", "json")
	suite.Require().NoError(err)

	var devices []deviceJSON
	suite.Require().NoError(json.Unmarshal([]byte(out), &devices))
	suite.Require().Len(devices, 1)
	suite.Assert().Equal("Desk 1234", devices[0].Name)
	suite.Assert().Equal(testDeskAddress, devices[0].Address)
	suite.Assert().Equal(-55, devices[0].RSSI)
	suite.Assert().Equal([]string{"99fa0001338a10248a49009c0215f78a"}, devices[0].Services)
}

func (suite *ScanTestSuite) TestScan_NoDevices() {
	testutils.InstallScanner(suite.T(), testutils.NewFakeScanner())

	out, err := suite.execute("scan", "-d", "50ms")
	suite.Assert().NoError(err)
	suite.Assert().Contains(out, "No devices discovered")
}

func (suite *ScanTestSuite) TestScan_AllowListFilter() {
	testutils.InstallScanner(suite.T(), testutils.NewFakeScanner(
		testutils.NewFakeAdvertisement(testDeskAddress).WithName("Desk 1234"),
		testutils.NewFakeAdvertisement("AA:BB:CC:DD:EE:FF").WithName("Headphones"),
	))

	out, err := suite.execute("scan", "-d", "50ms", "--allow", testDeskAddress)

	suite.Assert().NoError(err)
	suite.Assert().Contains(out, "Desk 1234")
	suite.Assert().NotContains(out, "Headphones")
}

func (suite *ScanTestSuite) TestScan_InvalidFormat() {
	_, err := suite.execute("scan", "--format", "xml")
	suite.Assert().Error(err)
	suite.Assert().Contains(err.Error(), "invalid format")
}

func (suite *ScanTestSuite) TestScan_InvalidServiceUUID() {
	testutils.InstallScanner(suite.T(), testutils.NewFakeScanner())

	_, err := suite.execute("scan", "-d", "50ms", "--services", "zzzz")
	suite.Assert().Error(err)
	suite.Assert().Contains(err.Error(), "invalid service UUID")
}

func TestScanTestSuite(t *testing.T) {
	suite.Run(t, new(ScanTestSuite))
}

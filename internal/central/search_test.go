package central

import (
	"time"

	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/testutils"
)

func (suite *CentralTestSuite) TestSearchOnceWithoutDevices() {
	// GOAL: Verify a single search window ends the search
	//
	// TEST SCENARIO: search(2s, once) with nothing discovered → scanning → idle, timer gone, hook called once

	suite.Require().NoError(suite.central.StartSearch(2*time.Second, SearchOnce()))
	suite.Assert().Equal(device.StateScanning, suite.central.State(), "state MUST be scanning")
	suite.Assert().True(suite.central.Searching())
	suite.Radio.AssertCalled(suite.T(), "Scan", []string(nil))

	suite.Clock.Advance(2 * time.Second)

	suite.Assert().Equal([]device.State{device.StateScanning, device.StateIdle}, suite.events.states, "state MUST go scanning → idle")
	suite.Assert().Equal(1, suite.events.expired, "search expired hook MUST be invoked once")
	suite.Assert().Equal(0, suite.Clock.PendingCount(), "search timer MUST be cancelled")
	suite.Assert().False(suite.central.Searching())
	suite.Radio.AssertNumberOfCalls(suite.T(), "StopScan", 1)

	suite.Clock.Advance(10 * time.Second)
	suite.Assert().Equal(1, suite.events.expired, "hook MUST NOT fire again")
}

func (suite *CentralTestSuite) TestSearchWithDiscoveredDevices() {
	suite.Require().NoError(suite.central.StartSearch(time.Second, SearchOnce()))
	suite.discover("Sensor", -60)

	suite.Clock.Advance(time.Second)

	suite.Assert().Equal(device.StateIdleWithDiscoveredDevices, suite.central.State())
}

func (suite *CentralTestSuite) TestSearchTimes() {
	// GOAL: Verify finite repeats rescan N times and then stop
	//
	// TEST SCENARIO: search(1s, times(2)) → 2 rescans → stop on the third expiry

	suite.Require().NoError(suite.central.StartSearch(time.Second, SearchTimes(2)))

	suite.Clock.Advance(2 * time.Second)
	suite.Radio.AssertNumberOfCalls(suite.T(), "Scan", 3)
	suite.Radio.AssertNotCalled(suite.T(), "StopScan")
	suite.Assert().Equal(device.StateScanning, suite.central.State(), "rescan MUST return to scanning")

	suite.Clock.Advance(time.Second)
	suite.Radio.AssertNumberOfCalls(suite.T(), "Scan", 3)
	suite.Radio.AssertNumberOfCalls(suite.T(), "StopScan", 1)
	suite.Assert().Equal(3, suite.events.expired, "hook MUST run on every window expiry")
	suite.Assert().Equal(0, suite.Clock.PendingCount())
	suite.Assert().Equal(device.StateIdle, suite.central.State())
}

func (suite *CentralTestSuite) TestSearchForeverUntilStopped() {
	suite.Require().NoError(suite.central.StartSearch(time.Second, SearchForever()))

	suite.Clock.Advance(5 * time.Second)
	suite.Radio.AssertNumberOfCalls(suite.T(), "Scan", 6)
	suite.Radio.AssertNotCalled(suite.T(), "StopScan")
	suite.Assert().Equal(5, suite.events.expired)

	suite.central.StopSearch()
	suite.Radio.AssertNumberOfCalls(suite.T(), "StopScan", 1)
	suite.Assert().Equal(6, suite.events.expired, "StopSearch MUST invoke the hook")
	suite.Assert().Equal(0, suite.Clock.PendingCount(), "StopSearch MUST cancel the timer")

	suite.Run("stop is idempotent", func() {
		suite.central.StopSearch()
		suite.Radio.AssertNumberOfCalls(suite.T(), "StopScan", 1)
		suite.Assert().Equal(6, suite.events.expired, "second StopSearch MUST NOT invoke the hook")
	})
}

func (suite *CentralTestSuite) TestStartSearchClearsRegistries() {
	// GOAL: Verify a new search empties both registries and restarts fallback naming
	//
	// TEST SCENARIO: discover unnamed devices, connect one → new search → registries empty, next unnamed is Unknown_0

	suite.Require().NoError(suite.central.StartSearch(time.Second, SearchOnce()))
	first := suite.discover("", -40)
	suite.discover("", -50)
	suite.Assert().Equal([]string{"Unknown_0", "Unknown_1"}, suite.central.DeviceNames())
	suite.connect(first)
	suite.Require().Len(suite.central.ConnectedIDs(), 1)

	suite.Require().NoError(suite.central.StartSearch(time.Second, SearchOnce()))

	suite.Assert().Equal(0, suite.central.DiscoveredCount(), "discovered registry MUST be empty")
	suite.Assert().Empty(suite.central.ConnectedIDs(), "connected registry MUST be empty")
	suite.Assert().Empty(suite.central.discovered.idByName)
	suite.Assert().Empty(suite.central.discovered.nameByID)
	suite.Assert().Empty(suite.central.connected.idByName)
	suite.Assert().Empty(suite.central.connected.nameByID)
	suite.Radio.AssertNotCalled(suite.T(), "CancelConnection", first)

	_, attempted := suite.central.LastAttempted()
	suite.Assert().False(attempted)

	again := suite.discover("", -45)
	name, ok := suite.central.DiscoveredNameByID(again.ID())
	suite.Assert().True(ok)
	suite.Assert().Equal("Unknown_0", name, "unnamed counter MUST restart at zero")
}

func (suite *CentralTestSuite) TestStartSearchRejectsNonPositiveTimeout() {
	suite.Assert().Error(suite.central.StartSearch(0, SearchOnce()))
	suite.Radio.AssertNotCalled(suite.T(), "Scan", []string(nil))
	suite.Assert().Equal(device.StateUnknown, suite.central.State())
}

func (suite *CentralTestSuite) TestRestartedSearchSupersedesOldTimer() {
	suite.Require().NoError(suite.central.StartSearch(time.Second, SearchOnce()))
	suite.Require().NoError(suite.central.StartSearch(3*time.Second, SearchOnce()))

	suite.Clock.Advance(time.Second)
	suite.Assert().Equal(0, suite.events.expired, "superseded timer MUST NOT fire")

	suite.Clock.Advance(2 * time.Second)
	suite.Assert().Equal(1, suite.events.expired)
}

func (suite *CentralTestSuite) TestSearchStaleFireIgnored() {
	suite.Require().NoError(suite.central.StartSearch(time.Second, SearchForever()))
	epoch := suite.central.searchEpoch
	suite.central.StopSearch()

	// a fire that was already queued when the search stopped
	suite.central.searchWindowExpired(epoch)

	suite.Assert().Equal(1, suite.events.expired, "stale fire MUST be ignored")
	suite.Radio.AssertNumberOfCalls(suite.T(), "Scan", 1)
}

func (suite *CentralTestSuite) TestSearchUsesServiceFilter() {
	suite.configure(func(o *Options) {
		o.ServiceFilter = []string{"0000180D-0000-1000-8000-00805F9B34FB"}
	})
	suite.central.AddDesiredService("180f")
	suite.central.AddDesiredService("180F")

	suite.Require().NoError(suite.central.StartSearch(time.Second, SearchOnce()))
	suite.Radio.AssertCalled(suite.T(), "Scan", []string{"180d", "180f"})

	suite.central.ClearDesiredServices()
	suite.Assert().Empty(suite.central.Options().ServiceFilter)
}

func (suite *CentralTestSuite) TestSearchExpiredWithoutHook() {
	suite.central.SetSink(Sink{})
	suite.Require().NoError(suite.central.StartSearch(time.Second, SearchOnce()))

	suite.Assert().NotPanics(func() { suite.Clock.Advance(time.Second) })
	suite.Assert().Equal(device.StateIdle, suite.central.State())
}

func (suite *CentralTestSuite) TestVerboseMirrorsDebug() {
	suite.configure(func(o *Options) { o.Verbose = true })

	suite.central.StopSearch()

	suite.Assert().Contains(suite.events.debug, "StopSearch: no active search")
}

func (suite *CentralTestSuite) TestQuietModeKeepsDebugOutOfSink() {
	suite.central.StopSearch()
	suite.central.PeripheralDiscovered(testutils.NewPeripheral("x"), -10, nil)

	suite.Assert().Empty(suite.events.debug)
}

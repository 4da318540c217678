package central

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/testutils"
)

func (suite *CentralTestSuite) TestNameMapsStayInverse() {
	// GOAL: Verify id<->name maps stay mutual inverses under any discovery sequence
	//
	// TEST SCENARIO: random discoveries with name collisions, missing names and rediscoveries
	// → maps consistent after every event

	rng := rand.New(rand.NewSource(42))
	names := []string{"", "", "Thermo", "Thermo", "Lamp", "Lock", ""}
	peripherals := make([]*testutils.FakePeripheral, 8)
	for i := range peripherals {
		peripherals[i] = &testutils.FakePeripheral{Identifier: uuid.New()}
	}

	for step := 0; step < 500; step++ {
		p := peripherals[rng.Intn(len(peripherals))]
		p.LocalName = names[rng.Intn(len(names))]
		suite.central.PeripheralDiscovered(p, -30-rng.Intn(60), nil)

		if !suite.central.discovered.consistent() {
			suite.FailNow(fmt.Sprintf("name maps MUST be mutual inverses after step %d", step))
		}
	}

	for name, id := range suite.central.discovered.idByName {
		rec, ok := suite.central.Discovered(id)
		suite.Require().True(ok, "every named identifier MUST have a record")
		suite.Assert().Equal(name, rec.Name(), "record name MUST match its binding")
	}
	suite.Assert().LessOrEqual(suite.central.DiscoveredCount(), len(peripherals))
}

func (suite *CentralTestSuite) TestUnnamedDevicesGetFallbackNames() {
	a := suite.discover("", -50)
	b := suite.discover("", -60)

	nameA, _ := suite.central.DiscoveredNameByID(a.ID())
	nameB, _ := suite.central.DiscoveredNameByID(b.ID())
	suite.Assert().Equal("Unknown_0", nameA)
	suite.Assert().Equal("Unknown_1", nameB)

	suite.Run("rediscovery keeps the fallback name", func() {
		suite.central.PeripheralDiscovered(a, -55, nil)

		name, _ := suite.central.DiscoveredNameByID(a.ID())
		suite.Assert().Equal("Unknown_0", name)
		suite.Assert().Equal(2, suite.central.unknownIndex, "rediscovery MUST NOT consume a fallback index")
	})

	suite.Run("lookup by fallback name", func() {
		id, ok := suite.central.DiscoveredIDByName("Unknown_1")
		suite.Assert().True(ok)
		suite.Assert().Equal(b.ID(), id)
	})
}

func (suite *CentralTestSuite) TestRediscoveryUpdatesRecordInPlace() {
	p := suite.discover("Sensor", -70)
	rec := suite.record(p)

	suite.central.PeripheralDiscovered(p, -40, nil)

	again := suite.record(p)
	suite.Assert().Same(rec, again, "rediscovery MUST keep the shared record")
	suite.Assert().Equal(-40, again.RSSI())
	suite.Assert().Equal(1, suite.central.DiscoveredCount())

	ids, rssi := suite.central.RankedByRSSI()
	suite.Assert().Equal([]uuid.UUID{p.ID()}, ids, "ranking MUST hold each device once")
	suite.Assert().Equal([]int{-40}, rssi)
}

func (suite *CentralTestSuite) TestNameCollisionLatestWins() {
	first := suite.discover("Thermo", -50)
	second := suite.discover("Thermo", -60)

	id, ok := suite.central.DiscoveredIDByName("Thermo")
	suite.Assert().True(ok)
	suite.Assert().Equal(second.ID(), id, "latest device MUST own the name")

	_, ok = suite.central.DiscoveredNameByID(first.ID())
	suite.Assert().False(ok, "previous owner MUST lose the binding")
	suite.Assert().Equal(2, suite.central.DiscoveredCount(), "both records MUST stay discovered")
	suite.Assert().Equal([]string{"Thermo"}, suite.central.DeviceNames())
	suite.assertRegistriesConsistent()
}

func (suite *CentralTestSuite) TestAdvertisementCapture() {
	adv := testutils.CreateMockAdvertisementFromJSON(`{
		"name": "Beacon",
		"services": ["180F", "180D"],
		"serviceData": {"180F": "62"},
		"txPower": -4,
		"connectable": false
	}`).WithServiceData("fe95", []byte{0xff, 0xfe}).Build()

	suite.Run("disabled", func() {
		p := testutils.NewPeripheral("Beacon")
		suite.central.PeripheralDiscovered(p, -50, adv)

		rec := suite.record(p)
		suite.Assert().Nil(rec.Advertisement(), "advertisement MUST NOT be captured by default")
		suite.Assert().False(rec.Connectable(), "connectable flag MUST follow the advertisement")
	})

	suite.Run("enabled", func() {
		suite.configure(func(o *Options) { o.CaptureAdvertisements = true })
		p := testutils.NewPeripheral("Beacon")
		suite.central.PeripheralDiscovered(p, -50, adv)

		snap := suite.record(p).Advertisement()
		suite.Require().NotNil(snap)
		suite.Assert().Equal("Beacon", snap.LocalName)
		suite.Assert().Equal([]string{"180d", "180f"}, snap.Services)
		suite.Assert().Equal(map[string]string{"180f": "62"}, snap.ServiceData, "non UTF-8 service data MUST be skipped")
		suite.Require().NotNil(snap.TxPowerLevel)
		suite.Assert().Equal(-4, *snap.TxPowerLevel)
		suite.Assert().False(snap.Connectable)
	})
}

func (suite *CentralTestSuite) TestRadioStateChanged() {
	suite.central.StateChanged(device.PowerOn)
	suite.central.StateChanged(device.PowerOff)
	suite.central.StateChanged(device.PowerUnauthorized)

	suite.Assert().Equal([]device.State{device.StateOn, device.StateOff, device.StateUnauthorized}, suite.events.states)
	suite.Assert().Equal(device.StateUnauthorized, suite.central.State())
}

func (suite *CentralTestSuite) TestDiscoveredRSSI() {
	a := suite.discover("A", -80)
	b := suite.discover("B", -30)
	c := suite.discover("C", -55)

	suite.Assert().Equal(map[uuid.UUID]int{a.ID(): -80, b.ID(): -30, c.ID(): -55}, suite.central.DiscoveredRSSI(),
		"RSSI map MUST cover every discovered device")
	suite.Assert().Equal(-30, suite.central.RSSI(b.ID()))
	suite.Assert().Equal(0, suite.central.RSSI(uuid.New()), "unknown device MUST report 0")

	ids, rssi := suite.central.RankedByRSSI()
	suite.Assert().Equal([]uuid.UUID{b.ID(), c.ID(), a.ID()}, ids)
	suite.Assert().Equal([]int{-30, -55, -80}, rssi)
}

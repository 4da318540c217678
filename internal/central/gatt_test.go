package central

import (
	"errors"

	"github.com/google/uuid"
	"github.com/srg/blebehave/internal/radio"
	"github.com/srg/blebehave/internal/testutils"
	"github.com/stretchr/testify/mock"
)

const (
	uartService = "6e400001b5a3f393e0a9e50e24dcca9e"
	uartTX      = "6e400003b5a3f393e0a9e50e24dcca9e"
	uartRX      = "6e400002b5a3f393e0a9e50e24dcca9e"
)

// walkGATT feeds profile through the discovery callbacks the way a radio would.
func (suite *CentralTestSuite) walkGATT(p *testutils.FakePeripheral, profile *testutils.Profile) {
	suite.central.ServicesDiscovered(p.ID(), profile.Services, nil)
	for _, svc := range profile.Services {
		chars := profile.Characteristics[svc.UUID()]
		suite.central.CharacteristicsDiscovered(p.ID(), svc, chars, nil)
		for _, char := range chars {
			suite.central.DescriptorsDiscovered(p.ID(), char, profile.DescriptorsOf(char), nil)
		}
	}
}

func (suite *CentralTestSuite) TestGATTPipeline() {
	// GOAL: Verify services → characteristics → descriptors are discovered and recorded in order
	//
	// TEST SCENARIO: UART profile, tx is read-interesting → characteristic and descriptor discovery issued,
	// notify enabled on tx only, tree recorded

	suite.configure(func(o *Options) {
		o.ReadInterest = []string{"6E400003-B5A3-F393-E0A9-E50E24DCCA9E"}
	})
	profile := testutils.UARTProfile()
	p := suite.discover("UART", -50)
	rec := suite.connect(p)

	suite.walkGATT(p, profile)

	svc := profile.Service(uartService)
	tx := profile.Characteristic(uartService, uartTX)
	rx := profile.Characteristic(uartService, uartRX)

	suite.Radio.AssertCalled(suite.T(), "DiscoverCharacteristics", p, svc)
	suite.Radio.AssertCalled(suite.T(), "DiscoverDescriptors", p, tx)
	suite.Radio.AssertCalled(suite.T(), "DiscoverDescriptors", p, rx)
	suite.Radio.AssertCalled(suite.T(), "SetNotify", p, tx, true)
	suite.Radio.AssertNumberOfCalls(suite.T(), "SetNotify", 1)

	suite.Assert().Equal([]radio.Service{svc}, rec.Services())
	suite.Assert().Equal([]radio.Characteristic{tx, rx}, rec.Characteristics(uartService), "characteristics MUST keep discovery order")
	suite.Assert().Equal([]radio.Characteristic{tx, rx}, rec.AllCharacteristics())

	descs := rec.Descriptors(uartService, uartTX)
	suite.Require().Len(descs, 1)
	suite.Assert().Equal("2902", descs[0].UUID())
	suite.Assert().Empty(rec.Descriptors(uartService, uartRX))

	suite.Assert().Empty(suite.central.WriteInterest(), "no characteristic MUST be write-interesting by default")
}

func (suite *CentralTestSuite) TestAllCharacteristicsReadable() {
	suite.configure(func(o *Options) { o.AllCharacteristicsReadable = true })
	profile := testutils.UARTProfile()
	p := suite.discover("UART", -50)
	suite.connect(p)

	suite.walkGATT(p, profile)

	suite.Radio.AssertNumberOfCalls(suite.T(), "SetNotify", 2)
}

func (suite *CentralTestSuite) TestDiscoveryErrorEndsBranch() {
	p := suite.discover("UART", -50)
	rec := suite.connect(p)

	suite.central.ServicesDiscovered(p.ID(), testutils.UARTProfile().Services, errors.New("att error"))

	suite.Radio.AssertNotCalled(suite.T(), "DiscoverCharacteristics", mock.Anything, mock.Anything)
	suite.Assert().Empty(rec.Services())
}

func (suite *CentralTestSuite) TestDiscoveryForDisconnectedDeviceIgnored() {
	profile := testutils.UARTProfile()
	p := suite.discover("UART", -50)

	suite.walkGATT(p, profile)

	suite.Radio.AssertNotCalled(suite.T(), "DiscoverCharacteristics", mock.Anything, mock.Anything)
	suite.Assert().Empty(suite.record(p).Services())
}

func (suite *CentralTestSuite) TestReconnectRebuildsGATT() {
	profile := testutils.UARTProfile()
	p := suite.discover("UART", -50)
	rec := suite.connect(p)
	suite.walkGATT(p, profile)
	suite.Require().Len(rec.Services(), 1)

	suite.central.Disconnected(p.ID(), nil)
	suite.Require().True(suite.central.Connect(rec))
	suite.central.Connected(p.ID())

	suite.Assert().Empty(rec.Services(), "a new connection MUST start from an empty tree")
}

func (suite *CentralTestSuite) TestWriteBroadcast() {
	// GOAL: Verify write fans out to every write-interesting characteristic
	//
	// TEST SCENARIO: two write-interesting characteristics → write(id, "hello") → both receive "hello\n"

	suite.configure(func(o *Options) { o.AllCharacteristicsWritable = true })
	profile := testutils.UARTProfile()
	p := suite.discover("UART", -50)
	suite.connect(p)
	suite.walkGATT(p, profile)

	tx := profile.Characteristic(uartService, uartTX)
	rx := profile.Characteristic(uartService, uartRX)
	suite.Require().Equal([]radio.Characteristic{tx, rx}, suite.central.WriteInterest())

	suite.Assert().True(suite.central.Write(p.ID(), "hello"))

	suite.Radio.AssertCalled(suite.T(), "WriteValue", p, tx, []byte("hello\n"), false)
	suite.Radio.AssertCalled(suite.T(), "WriteValue", p, rx, []byte("hello\n"), false)
	suite.Radio.AssertNumberOfCalls(suite.T(), "WriteValue", 2)

	suite.Run("clear write interest", func() {
		suite.central.ClearWriteInterest()
		suite.Assert().True(suite.central.Write(p.ID(), "again"))
		suite.Radio.AssertNumberOfCalls(suite.T(), "WriteValue", 2)
	})
}

func (suite *CentralTestSuite) TestWriteInterestList() {
	suite.configure(func(o *Options) { o.WriteInterest = []string{uartRX} })
	profile := testutils.UARTProfile()
	p := suite.discover("UART", -50)
	suite.connect(p)
	suite.walkGATT(p, profile)

	suite.Assert().True(suite.central.Write(p.ID(), "x"))

	rx := profile.Characteristic(uartService, uartRX)
	suite.Radio.AssertCalled(suite.T(), "WriteValue", p, rx, []byte("x\n"), false)
	suite.Radio.AssertNumberOfCalls(suite.T(), "WriteValue", 1)
}

func (suite *CentralTestSuite) TestWriteToUnconnectedDevice() {
	suite.configure(func(o *Options) { o.AllCharacteristicsWritable = true })
	p := suite.discover("UART", -50)

	suite.Assert().False(suite.central.Write(p.ID(), "hello"))
	suite.Assert().False(suite.central.Write(uuid.New(), "hello"))
	suite.Radio.AssertNotCalled(suite.T(), "WriteValue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CentralTestSuite) TestValueUpdatedForwarding() {
	p := suite.discover("UART", -50)
	suite.connect(p)
	tx := testutils.UARTProfile().Characteristic(uartService, uartTX)

	suite.central.ValueUpdated(p.ID(), tx, []byte("temp=21"), nil)
	suite.central.ValueUpdated(p.ID(), tx, []byte{0xff, 0xfe}, nil)
	suite.central.ValueUpdated(p.ID(), tx, []byte("lost"), errors.New("read failed"))

	suite.Assert().Equal([][]byte{[]byte("temp=21"), {0xff, 0xfe}}, suite.events.data[p.ID()], "raw bytes MUST always be forwarded")
	suite.Assert().Equal([]string{"temp=21"}, suite.events.text[p.ID()], "only valid UTF-8 MUST be forwarded as text")
}

func (suite *CentralTestSuite) TestReceiveBuffer() {
	suite.configure(func(o *Options) { o.RxBufferSize = 4 })
	p := suite.discover("UART", -50)
	suite.connect(p)
	tx := testutils.UARTProfile().Characteristic(uartService, uartTX)

	suite.central.ValueUpdated(p.ID(), tx, []byte("abcdef"), nil)

	suite.Assert().Equal(4, suite.central.SerialDataAvailable(p.ID()), "overflow MUST keep the oldest bytes")
	b, ok := suite.central.RxByte(p.ID())
	suite.Assert().True(ok)
	suite.Assert().Equal(byte('a'), b)

	buf := make([]byte, 8)
	n, err := suite.central.ReadRx(p.ID(), buf)
	suite.Assert().NoError(err)
	suite.Assert().Equal("bcd", string(buf[:n]))

	_, ok = suite.central.RxByte(p.ID())
	suite.Assert().False(ok, "drained buffer MUST be empty")

	suite.central.ValueUpdated(p.ID(), tx, []byte("zz"), nil)
	suite.central.ClearRx(p.ID())
	suite.Assert().Equal(0, suite.central.SerialDataAvailable(p.ID()))

	_, err = suite.central.ReadRx(uuid.New(), buf)
	suite.Assert().Error(err, "unknown device MUST be reported")
}

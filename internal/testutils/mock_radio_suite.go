package testutils

import (
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

// MockRadioSuite provides a reusable test suite with a mock radio and a manual clock.
//
// Basic usage:
//
//	type ConnectSuite struct {
//	    testutils.MockRadioSuite
//	}
//
//	func TestConnectSuite(t *testing.T) {
//	    suite.Run(t, new(ConnectSuite))
//	}
//
//	func (s *ConnectSuite) TestSomething() {
//	    c := central.New(s.Radio, s.Clock, opts, s.Logger)
//	    ...
//	    s.Clock.Advance(2 * time.Second)
//	    s.Radio.AssertNumberOfCalls(s.T(), "Connect", 1)
//	}
//
// Radio and Clock are recreated before each test.
type MockRadioSuite struct {
	suite.Suite

	Helper *TestHelper    // Test helper with logging
	Logger *logrus.Logger // Structured logger for test output

	Radio *MockRadio
	Clock *ManualScheduler
}

// SetupSuite initializes the shared helper and logger.
func (s *MockRadioSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
}

// SetupTest creates a fresh radio and clock before each test.
func (s *MockRadioSuite) SetupTest() {
	s.Radio = NewMockRadio()
	s.Clock = NewManualScheduler()
}

// TearDownTest drops the per-test fixtures.
func (s *MockRadioSuite) TearDownTest() {
	s.Radio = nil
	s.Clock = nil
}

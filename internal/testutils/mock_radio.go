package testutils

import (
	"github.com/srg/blebehave/internal/radio"
	"github.com/stretchr/testify/mock"
)

// MockRadio is a testify mock of radio.Radio.
// Commands are recorded; unexpected calls fail the test unless allowed with Maybe().
type MockRadio struct {
	mock.Mock
}

// NewMockRadio creates a MockRadio that accepts any command.
// Tests assert on the recorded calls with AssertCalled/AssertNumberOfCalls.
func NewMockRadio() *MockRadio {
	m := &MockRadio{}
	m.On("Scan", mock.Anything).Return().Maybe()
	m.On("StopScan").Return().Maybe()
	m.On("Connect", mock.Anything).Return().Maybe()
	m.On("CancelConnection", mock.Anything).Return().Maybe()
	m.On("DiscoverServices", mock.Anything, mock.Anything).Return().Maybe()
	m.On("DiscoverCharacteristics", mock.Anything, mock.Anything).Return().Maybe()
	m.On("DiscoverDescriptors", mock.Anything, mock.Anything).Return().Maybe()
	m.On("SetNotify", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	m.On("WriteValue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	return m
}

func (m *MockRadio) Scan(serviceFilter []string) {
	m.Called(serviceFilter)
}

func (m *MockRadio) StopScan() {
	m.Called()
}

func (m *MockRadio) Connect(p radio.Peripheral) {
	m.Called(p)
}

func (m *MockRadio) CancelConnection(p radio.Peripheral) {
	m.Called(p)
}

func (m *MockRadio) DiscoverServices(p radio.Peripheral, filter []string) {
	m.Called(p, filter)
}

func (m *MockRadio) DiscoverCharacteristics(p radio.Peripheral, svc radio.Service) {
	m.Called(p, svc)
}

func (m *MockRadio) DiscoverDescriptors(p radio.Peripheral, char radio.Characteristic) {
	m.Called(p, char)
}

func (m *MockRadio) SetNotify(p radio.Peripheral, char radio.Characteristic, enabled bool) {
	m.Called(p, char, enabled)
}

func (m *MockRadio) WriteValue(p radio.Peripheral, char radio.Characteristic, data []byte, withResponse bool) {
	m.Called(p, char, data, withResponse)
}

// CallsOf returns the recorded calls of method, in order.
func (m *MockRadio) CallsOf(method string) []mock.Call {
	var calls []mock.Call
	for _, c := range m.Calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// Reset forgets recorded calls but keeps expectations.
func (m *MockRadio) Reset() {
	m.Calls = nil
}

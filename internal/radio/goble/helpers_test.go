package goble

import (
	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/radio"
)

type event struct {
	kind     string
	id       uuid.UUID
	name     string
	rssi     int
	adv      device.AdvertisementData
	power    device.PowerState
	services []radio.Service
	chars    []radio.Characteristic
	descs    []radio.Descriptor
	data     []byte
	err      error
}

// chanHandler forwards every callback to a channel.
type chanHandler struct {
	events chan event
}

func newChanHandler() *chanHandler {
	return &chanHandler{events: make(chan event, 64)}
}

func (h *chanHandler) StateChanged(state device.PowerState) {
	h.events <- event{kind: "state", power: state}
}

func (h *chanHandler) PeripheralDiscovered(p radio.Peripheral, rssi int, adv device.AdvertisementData) {
	h.events <- event{kind: "discovered", id: p.ID(), name: p.Name(), rssi: rssi, adv: adv}
}

func (h *chanHandler) Connected(id uuid.UUID) {
	h.events <- event{kind: "connected", id: id}
}

func (h *chanHandler) ConnectFailed(id uuid.UUID, err error) {
	h.events <- event{kind: "connectFailed", id: id, err: err}
}

func (h *chanHandler) Disconnected(id uuid.UUID, err error) {
	h.events <- event{kind: "disconnected", id: id, err: err}
}

func (h *chanHandler) ServicesDiscovered(id uuid.UUID, services []radio.Service, err error) {
	h.events <- event{kind: "services", id: id, services: services, err: err}
}

func (h *chanHandler) CharacteristicsDiscovered(id uuid.UUID, _ radio.Service, chars []radio.Characteristic, err error) {
	h.events <- event{kind: "characteristics", id: id, chars: chars, err: err}
}

func (h *chanHandler) DescriptorsDiscovered(id uuid.UUID, _ radio.Characteristic, descs []radio.Descriptor, err error) {
	h.events <- event{kind: "descriptors", id: id, descs: descs, err: err}
}

func (h *chanHandler) ValueUpdated(id uuid.UUID, _ radio.Characteristic, data []byte, err error) {
	h.events <- event{kind: "value", id: id, data: data, err: err}
}

func uartProfile() (*ble.Service, *ble.Characteristic, *ble.Characteristic) {
	svc := &ble.Service{UUID: ble.MustParse("6e400001-b5a3-f393-e0a9-e50e24dcca9e")}
	tx := &ble.Characteristic{
		UUID:     ble.MustParse("6e400003-b5a3-f393-e0a9-e50e24dcca9e"),
		Property: ble.CharNotify,
	}
	rx := &ble.Characteristic{
		UUID:     ble.MustParse("6e400002-b5a3-f393-e0a9-e50e24dcca9e"),
		Property: ble.CharWrite | ble.CharWriteNR,
	}
	svc.Characteristics = []*ble.Characteristic{tx, rx}
	return svc, tx, rx
}

package goble

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/radio"
)

type service struct {
	svc  *ble.Service
	uuid string
}

func newService(s *ble.Service) *service {
	return &service{svc: s, uuid: device.NormalizeUUID(s.UUID.String())}
}

func (s *service) UUID() string { return s.uuid }

type characteristic struct {
	char    *ble.Characteristic
	uuid    string
	service string
}

func newCharacteristic(c *ble.Characteristic, serviceUUID string) *characteristic {
	return &characteristic{char: c, uuid: device.NormalizeUUID(c.UUID.String()), service: serviceUUID}
}

func (c *characteristic) UUID() string               { return c.uuid }
func (c *characteristic) ServiceUUID() string        { return c.service }
func (c *characteristic) Properties() radio.Property { return toProperty(c.char.Property) }

type descriptor struct {
	uuid string
}

func (d *descriptor) UUID() string { return d.uuid }

func asService(s radio.Service) (*service, error) {
	svc, ok := s.(*service)
	if !ok || svc.svc == nil {
		return nil, fmt.Errorf("service %v was not discovered by this radio", s)
	}
	return svc, nil
}

func asCharacteristic(c radio.Characteristic) (*characteristic, error) {
	char, ok := c.(*characteristic)
	if !ok || char.char == nil {
		return nil, fmt.Errorf("characteristic %v was not discovered by this radio", c)
	}
	return char, nil
}

// parseFilter converts normalized UUID strings to ble.UUIDs, skipping malformed ones.
func parseFilter(uuids []string) ([]ble.UUID, []string) {
	if len(uuids) == 0 {
		return nil, nil
	}
	var (
		out     []ble.UUID
		invalid []string
	)
	for _, s := range uuids {
		u, err := ble.Parse(s)
		if err != nil {
			invalid = append(invalid, s)
			continue
		}
		out = append(out, u)
	}
	return out, invalid
}

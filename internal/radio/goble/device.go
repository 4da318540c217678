package goble

import (
	"context"

	"github.com/go-ble/ble"
)

// Device is the part of ble.Device the radio drives.
type Device interface {
	Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error
	Dial(ctx context.Context, addr ble.Addr) (Client, error)
}

// Client is the part of ble.Client used for an established link.
type Client interface {
	DiscoverServices(filter []ble.UUID) ([]*ble.Service, error)
	DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error)
	DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

// bleDevice adapts a platform ble.Device to Device.
type bleDevice struct {
	dev ble.Device
}

func (d *bleDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	return d.dev.Scan(ctx, allowDup, h)
}

func (d *bleDevice) Dial(ctx context.Context, addr ble.Addr) (Client, error) {
	client, err := d.dev.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// DeviceFactory creates the platform device (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (Device, error) {
	dev, err := newPlatformDevice()
	if err != nil {
		return nil, err
	}
	return &bleDevice{dev: dev}, nil
}

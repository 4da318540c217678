package central

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/radio"
)

// ServicesDiscovered records the services of a connected device and discovers their characteristics.
func (c *Central) ServicesDiscovered(id uuid.UUID, services []radio.Service, err error) {
	rec, ok := c.gattTarget(id, "services", err)
	if !ok {
		return
	}

	for _, svc := range services {
		rec.addService(svc)
		c.debug(logrus.Fields{"device": rec.Identity().String(), "service": svc.UUID()}, "Discovered service")
		c.radio.DiscoverCharacteristics(rec.handle, svc)
	}
}

// CharacteristicsDiscovered records characteristics, subscribes to the read-interesting
// ones, registers the write-interesting ones and discovers descriptors.
func (c *Central) CharacteristicsDiscovered(id uuid.UUID, svc radio.Service, chars []radio.Characteristic, err error) {
	rec, ok := c.gattTarget(id, "characteristics", err)
	if !ok {
		return
	}

	for _, char := range chars {
		if !rec.addCharacteristic(svc.UUID(), char) {
			rec.addService(svc)
			rec.addCharacteristic(svc.UUID(), char)
		}

		fields := logrus.Fields{
			"device":         rec.Identity().String(),
			"service":        svc.UUID(),
			"characteristic": char.UUID(),
		}

		if c.opts.AllCharacteristicsReadable || device.ContainsUUID(c.opts.ReadInterest, char.UUID()) {
			c.debug(fields, "Subscribing to characteristic")
			c.radio.SetNotify(rec.handle, char, true)
		}
		if c.opts.AllCharacteristicsWritable || device.ContainsUUID(c.opts.WriteInterest, char.UUID()) {
			c.writeTargets.Set(writeKey(char), char)
			c.debug(fields, "Characteristic marked for writing")
		}

		c.radio.DiscoverDescriptors(rec.handle, char)
	}
}

// DescriptorsDiscovered attaches descriptors to their characteristic.
func (c *Central) DescriptorsDiscovered(id uuid.UUID, char radio.Characteristic, descs []radio.Descriptor, err error) {
	rec, ok := c.gattTarget(id, "descriptors", err)
	if !ok {
		return
	}

	for _, d := range descs {
		if !rec.addDescriptor(char, d) {
			c.debug(logrus.Fields{
				"device":         rec.Identity().String(),
				"characteristic": char.UUID(),
				"descriptor":     d.UUID(),
			}, "Descriptor of unknown characteristic, ignoring")
		}
	}
}

// gattTarget returns the connected record for a discovery callback; errors end that branch.
func (c *Central) gattTarget(id uuid.UUID, stage string, err error) (*Record, bool) {
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"device": id.String(),
			"stage":  stage,
			"error":  device.NormalizeError(err),
		}).Warn("GATT discovery failed")
		return nil, false
	}
	rec, ok := c.connected.get(id)
	if !ok {
		c.debug(logrus.Fields{"device": id.String(), "stage": stage}, "Discovery result for a device that is not connected, ignoring")
		return nil, false
	}
	return rec, true
}

func writeKey(char radio.Characteristic) string {
	return device.NormalizeUUID(char.ServiceUUID()) + "/" + device.NormalizeUUID(char.UUID())
}

// Write sends text followed by "\n" to every write-interesting characteristic,
// addressed through the radio handle of id, without response. The interest list
// belongs to the orchestrator, not to the target device.
// It returns false when id is not connected.
func (c *Central) Write(id uuid.UUID, text string) bool {
	rec, ok := c.connected.get(id)
	if !ok {
		c.debug(logrus.Fields{"device": id.String(), "error": device.ErrNotConnected}, "Write ignored")
		return false
	}

	payload := []byte(text + "\n")
	if c.writeTargets.Len() == 0 {
		c.debug(logrus.Fields{"device": rec.Identity().String()}, "Write skipped, no write-interesting characteristics")
		return true
	}

	for pair := c.writeTargets.Oldest(); pair != nil; pair = pair.Next() {
		c.debug(logrus.Fields{
			"device":         rec.Identity().String(),
			"characteristic": pair.Value.UUID(),
			"bytes":          len(payload),
		}, "Writing")
		c.radio.WriteValue(rec.handle, pair.Value, payload, false)
	}
	return true
}

package goble

import (
	"strings"
	"sync"

	"github.com/go-ble/ble"
	"github.com/google/uuid"
)

// IdentifierFor returns the stable device identifier for a platform address.
// CoreBluetooth already reports UUIDs; MAC addresses are mapped to a name-based UUID.
func IdentifierFor(addr string) uuid.UUID {
	if id, err := uuid.Parse(addr); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("ble:"+strings.ToLower(addr)))
}

// peripheral implements radio.Peripheral on top of a scanned ble.Addr
type peripheral struct {
	id   uuid.UUID
	addr ble.Addr

	mu   sync.RWMutex
	name string
}

func (p *peripheral) ID() uuid.UUID { return p.id }

func (p *peripheral) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *peripheral) setName(name string) {
	if name == "" {
		return
	}
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

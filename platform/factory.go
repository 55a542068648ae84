// platform/factory.go
package platform

import (
	"sync"

	"tinygo.org/x/drivers"
)

// I2CFactory resolves bus IDs ("i2c0", "1", "/dev/i2c-1" depending on the
// build) to configured buses.
type I2CFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// MapI2CFactory serves a fixed bus table. Tests and main wiring inject
// whatever they need.
type MapI2CFactory struct {
	Buses map[string]drivers.I2C
}

func (f *MapI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.Buses[id]
	return b, ok
}

// SharedI2C serializes transactions from several devices onto one bus.
// It guards single transactions only; multi-transaction sequences that
// must not interleave (focus, measure, unfocus) are serialized above this
// layer by whoever owns the switch group.
type SharedI2C struct {
	mu  sync.Mutex
	bus drivers.I2C
}

// Share wraps a bus. A nil bus is returned unchanged as nil.
func Share(bus drivers.I2C) *SharedI2C {
	if bus == nil {
		return nil
	}
	return &SharedI2C{bus: bus}
}

func (s *SharedI2C) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Tx(addr, w, r)
}

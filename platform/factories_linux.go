// platform/factories_linux.go
//go:build linux && !rp2040 && !rp2350

package platform

import (
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// periphBus adapts periph's i2c.Bus to the drivers.I2C surface the engine
// rides on. The Tx signatures line up, including the write-then-read
// repeated-start contract for kernel i2c-dev.
type periphBus struct{ bus i2c.Bus }

func (p *periphBus) Tx(addr uint16, w, r []byte) error { return p.bus.Tx(addr, w, r) }

type linuxI2CFactory struct {
	mu    sync.Mutex
	buses map[string]drivers.I2C
}

func (f *linuxI2CFactory) ByID(id string) (drivers.I2C, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buses[id]; ok {
		return b, true
	}
	bus, err := i2creg.Open(id)
	if err != nil {
		return nil, false
	}
	b := &periphBus{bus: bus}
	f.buses[id] = b
	return b, true
}

// DefaultI2CFactory opens kernel i2c-dev buses lazily by periph name
// ("1", "/dev/i2c-1"). host.Init is idempotent.
func DefaultI2CFactory() I2CFactory {
	_, _ = host.Init()
	return &linuxI2CFactory{buses: make(map[string]drivers.I2C)}
}

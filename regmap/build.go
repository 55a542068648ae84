package regmap

import (
	"sync"

	"tinygo.org/x/drivers"
)

// BuildInput carries everything a driver needs to assemble a Source from
// configuration: the bus, the strapped address, optional channel routing, a
// measurement cycle, and initial field codes written through Set before the
// first sample.
type BuildInput struct {
	Bus    drivers.I2C
	Addr   uint16
	Group  *FocusGroup
	Cycle  []uint64
	Params map[string]uint64
}

// SourceBuilder assembles a configured Source for one device type.
type SourceBuilder func(in BuildInput) (Source, error)

var (
	muBuilders sync.RWMutex
	builders   = map[string]SourceBuilder{}
)

// RegisterBuilder installs a Source builder for a device type string.
// It panics on duplicate registration to catch mistakes at start-up;
// driver packages call it from init alongside Register.
func RegisterBuilder(deviceType string, b SourceBuilder) {
	muBuilders.Lock()
	defer muBuilders.Unlock()
	if deviceType == "" {
		panic("regmap: empty device type for builder")
	}
	if _, exists := builders[deviceType]; exists {
		panic("regmap: builder already registered for type " + deviceType)
	}
	builders[deviceType] = b
}

// LookupBuilder returns the Source builder for a device type.
func LookupBuilder(deviceType string) (SourceBuilder, bool) {
	muBuilders.RLock()
	defer muBuilders.RUnlock()
	b, ok := builders[deviceType]
	return b, ok
}

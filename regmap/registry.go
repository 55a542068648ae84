package regmap

import (
	"sort"
	"sync"
)

var (
	muMaps sync.RWMutex
	maps   = map[string]Map{}
)

// Register installs the register map for a device type string.
// It panics on an invalid map or duplicate registration to catch mistakes
// at start-up; driver packages call it from init.
func Register(deviceType string, m Map) {
	muMaps.Lock()
	defer muMaps.Unlock()
	if deviceType == "" {
		panic("regmap: empty device type")
	}
	if _, exists := maps[deviceType]; exists {
		panic("regmap: map already registered for type " + deviceType)
	}
	if err := m.Validate(); err != nil {
		panic("regmap: " + deviceType + ": " + err.Error())
	}
	if m.DefaultAddr == 0 {
		m.DefaultAddr = m.Addrs[0]
	}
	maps[deviceType] = m
}

// Lookup returns the registered map for a device type.
func Lookup(deviceType string) (Map, bool) {
	muMaps.RLock()
	defer muMaps.RUnlock()
	m, ok := maps[deviceType]
	return m, ok
}

// Types returns every registered device type in sorted order.
func Types() []string {
	muMaps.RLock()
	defer muMaps.RUnlock()
	out := make([]string, 0, len(maps))
	for t := range maps {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

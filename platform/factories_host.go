// platform/factories_host.go
//go:build !rp2040 && !rp2350 && !linux

package platform

import (
	"tinygo.org/x/drivers"
)

// DefaultI2CFactory creates inert simulated buses "i2c0" and "i2c1".
// Host builds outside linux have no kernel I2C to open.
func DefaultI2CFactory() I2CFactory {
	return &MapI2CFactory{
		Buses: map[string]drivers.I2C{
			"i2c0": &SimI2C{},
			"i2c1": &SimI2C{},
		},
	}
}

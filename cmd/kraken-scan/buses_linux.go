//go:build linux && !rp2040 && !rp2350

package main

// Kernel i2c-dev bus 1, the usual exposed header bus. Pass periph names
// ("0", "/dev/i2c-20") as arguments for anything else.
var defaultBuses = []string{"1"}

//go:build rp2040 || rp2350

package main

// Both on-chip controllers, board-default pins.
var defaultBuses = []string{"i2c0", "i2c1"}

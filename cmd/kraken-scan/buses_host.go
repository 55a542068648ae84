//go:build !rp2040 && !rp2350 && !linux

package main

// Simulated platform buses.
var defaultBuses = []string{"i2c0", "i2c1"}

//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"
)

var led machine.Pin

// statusInit lights the onboard LED (GP25 on Pico) to signal "running".
func statusInit() {
	led = machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.High()
}

// statusDone never returns: solid LED if every check passed, a slow
// blink forever otherwise, so a headless board still reports.
func statusDone(ok bool) {
	if ok {
		for {
			led.High()
			time.Sleep(2 * time.Second)
		}
	}
	for {
		led.High()
		time.Sleep(250 * time.Millisecond)
		led.Low()
		time.Sleep(250 * time.Millisecond)
	}
}

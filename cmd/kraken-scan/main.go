// cmd/kraken-scan/main.go
//
// Walks I2C buses probing every 7-bit address, lists the responders, and
// names the catalogue types that can strap to each one. Bus IDs come from
// the platform defaults; command arguments override them. The tool builds
// for host and MCU targets alike, so output sticks to println.
package main

import (
	"os"

	"tinygo.org/x/drivers"

	"regmap-go/platform"
	"regmap-go/regmap"
	"regmap-go/x/conv"

	// device catalogue
	_ "regmap-go/drivers/ads1x15"
	_ "regmap-go/drivers/aht20"
	_ "regmap-go/drivers/dac8574"
	_ "regmap-go/drivers/hih8121"
	_ "regmap-go/drivers/lsm9ds1"
	_ "regmap-go/drivers/ltc4015"
	_ "regmap-go/drivers/tca95xx"
)

func main() {
	ids := defaultBuses
	if len(os.Args) > 1 {
		ids = os.Args[1:]
	}
	buses := platform.DefaultI2CFactory()
	for _, id := range ids {
		bus, ok := buses.ByID(id)
		if !ok {
			println("bus " + id + ": not available")
			continue
		}
		for _, line := range scanBus(id, bus) {
			println(line)
		}
	}
}

// scanBus probes the address range and formats one report line per
// responder, naming every catalogue type that can strap there.
func scanBus(id string, bus drivers.I2C) []string {
	lines := []string{"bus " + id + ":"}
	var probe [1]byte
	var num [8]byte
	n := 0
	for addr := uint16(0x08); addr <= 0x77; addr++ {
		if bus.Tx(addr, nil, probe[:]) != nil {
			continue
		}
		n++
		line := "  0x" + string(conv.U8Hex(num[:], uint8(addr)))
		for _, typ := range regmap.Types() {
			if m, ok := regmap.Lookup(typ); ok && m.HasAddr(addr) {
				line += " " + typ
			}
		}
		lines = append(lines, line)
	}
	return append(lines, "  "+string(conv.Itoa(num[:], int64(n)))+" responding")
}

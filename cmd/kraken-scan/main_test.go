package main

import (
	"errors"
	"strings"
	"testing"
)

// nakBus answers only the strapped addresses.
type nakBus struct{ present map[uint16]bool }

func (f *nakBus) Tx(addr uint16, w, r []byte) error {
	if !f.present[addr] {
		return errors.New("nak")
	}
	return nil
}

func TestScanNamesCatalogueTypes(t *testing.T) {
	bus := &nakBus{present: map[uint16]bool{0x48: true, 0x68: true, 0x70: true}}
	lines := scanBus("i2c0", bus)

	if lines[0] != "bus i2c0:" {
		t.Fatalf("header: %q", lines[0])
	}
	if last := lines[len(lines)-1]; last != "  3 responding" {
		t.Fatalf("count line: %q", last)
	}
	body := strings.Join(lines[1:len(lines)-1], "\n")
	for _, want := range []string{
		"0x48 ads1013 ads1014 ads1015 ads1113 ads1114 ads1115",
		"0x68 ltc4015",
		"0x70 tca9545a tca9548a",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestScanEmptyBus(t *testing.T) {
	lines := scanBus("i2c1", &nakBus{})
	if len(lines) != 2 || lines[1] != "  0 responding" {
		t.Fatalf("empty scan: %v", lines)
	}
}

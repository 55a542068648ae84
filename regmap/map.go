package regmap

import (
	"sort"

	"regmap-go/errcode"
)

// Field describes one bit window inside a configuration register.
type Field struct {
	// Reg is the register address the window lives in.
	Reg uint8
	// Start is the bit position of the window's least significant bit.
	Start uint8
	// Width is the window size in bits. Must be at least 1.
	Width uint8
	// Info is a short datasheet note shown by tooling. Optional.
	Info string
	// Decode maps each raw code to its datasheet meaning. When set it must
	// hold exactly 1<<Width entries. nil passes raw codes through unchanged.
	Decode []any
}

// DataReg describes a measurement register read and written whole.
type DataReg struct {
	Reg   uint8
	Width uint8 // bytes on the wire
}

// Map is the complete register description for one device type.
// A Map is shared, read-only data; per-device state lives in Device.
type Map struct {
	// RegWidth is the size of every configuration register in bytes.
	RegWidth uint8
	// LSBFirst marks a part that sends multi-byte registers low byte first,
	// the SMBus word order. Default is most significant byte first.
	LSBFirst bool
	// Fields names every configuration bit window.
	Fields map[string]Field
	// Data names every measurement register.
	Data map[string]DataReg
	// Addrs lists the 7-bit bus addresses the part can strap to.
	Addrs []uint16
	// DefaultAddr is used when a Device is created with address 0.
	// Zero means the first entry of Addrs.
	DefaultAddr uint16
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidMap, Op: "regmap.validate", Msg: msg}
}

// Validate checks the map for internal consistency: window bounds, decode
// table sizes, overlapping windows within a register, and the address list.
func (m Map) Validate() error {
	if m.RegWidth < 1 || m.RegWidth > 8 {
		return invalid("register width out of range")
	}
	regBits := uint8(8) * m.RegWidth

	// Group windows per register so overlaps can be checked pairwise.
	byReg := make(map[uint8][]string)
	for name, f := range m.Fields {
		if name == "" {
			return invalid("empty field name")
		}
		if f.Width < 1 {
			return invalid(name + ": zero-width field")
		}
		if uint16(f.Start)+uint16(f.Width) > uint16(regBits) {
			return invalid(name + ": window exceeds register")
		}
		if f.Decode != nil {
			if f.Width > 16 {
				return invalid(name + ": decode table on wide field")
			}
			if len(f.Decode) != 1<<f.Width {
				return invalid(name + ": decode table size mismatch")
			}
		}
		byReg[f.Reg] = append(byReg[f.Reg], name)
	}
	for _, names := range byReg {
		sort.Strings(names)
		for i, a := range names {
			fa := m.Fields[a]
			aLo, aHi := uint16(fa.Start), uint16(fa.Start)+uint16(fa.Width)
			for _, b := range names[i+1:] {
				fb := m.Fields[b]
				bLo, bHi := uint16(fb.Start), uint16(fb.Start)+uint16(fb.Width)
				if aLo < bHi && bLo < aHi {
					return invalid(a + "/" + b + ": overlapping windows")
				}
			}
		}
	}

	for name, d := range m.Data {
		if name == "" {
			return invalid("empty data register name")
		}
		if d.Width < 1 || d.Width > 8 {
			return invalid(name + ": data width out of range")
		}
	}

	if len(m.Addrs) == 0 {
		return invalid("no bus addresses")
	}
	for _, a := range m.Addrs {
		if a == 0 || a > 0x7F {
			return invalid("address not 7-bit")
		}
	}
	if m.DefaultAddr != 0 && !m.HasAddr(m.DefaultAddr) {
		return invalid("default address not in address list")
	}
	return nil
}

// HasAddr reports whether a is one of the map's permitted addresses.
func (m Map) HasAddr(a uint16) bool {
	for _, x := range m.Addrs {
		if x == a {
			return true
		}
	}
	return false
}

// FieldNames returns every configuration field name in sorted order.
func (m Map) FieldNames() []string {
	out := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DataNames returns every data register name in sorted order.
func (m Map) DataNames() []string {
	out := make([]string, 0, len(m.Data))
	for name := range m.Data {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

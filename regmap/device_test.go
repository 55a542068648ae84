package regmap

import (
	"testing"

	"regmap-go/errcode"
	"regmap-go/platform"
)

func init() {
	// A 16-bit-register part and an 8-bit-register part, shaped like the
	// real silicon this package drives.
	Register("emu16", Map{
		RegWidth: 2,
		Fields: map[string]Field{
			"MODE": {Reg: 0x01, Start: 8, Width: 1},
			"RATE": {Reg: 0x01, Start: 5, Width: 3},
			"GAIN": {Reg: 0x02, Start: 0, Width: 2, Decode: []any{1.0, 2.0, 4.0, 8.0}},
		},
		Data: map[string]DataReg{
			"OUT": {Reg: 0x00, Width: 2},
		},
		Addrs:       []uint16{0x48, 0x49},
		DefaultAddr: 0x48,
	})
	Register("emu8", Map{
		RegWidth: 1,
		Fields: map[string]Field{
			"EN": {Reg: 0x20, Start: 0, Width: 1},
		},
		Data: map[string]DataReg{
			"LO": {Reg: 0x28, Width: 1},
			"HI": {Reg: 0x29, Width: 1},
		},
		Addrs: []uint16{0x1E},
	})
	// An SMBus-style part: words go low byte first.
	Register("emule", Map{
		RegWidth: 2,
		LSBFirst: true,
		Fields: map[string]Field{
			"HIBIT": {Reg: 0x10, Start: 9, Width: 1},
			"LOBIT": {Reg: 0x10, Start: 1, Width: 1},
		},
		Data: map[string]DataReg{
			"WORD": {Reg: 0x11, Width: 2},
		},
		Addrs: []uint16{0x68},
	})
}

func newEmu16(t *testing.T, sim *platform.SimI2C) *Device {
	t.Helper()
	d, err := New("emu16", sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestNewResolvesAddress(t *testing.T) {
	sim := &platform.SimI2C{}
	d := newEmu16(t, sim)
	if d.Addr() != 0x48 {
		t.Fatalf("default address: got %#x, want 0x48", d.Addr())
	}
	if d, err := New("emu16", sim, 0x49); err != nil || d.Addr() != 0x49 {
		t.Fatalf("explicit address: got %v, %v", d, err)
	}
	if _, err := New("emu16", sim, 0x50); errcode.Of(err) != errcode.BadAddress {
		t.Fatalf("bad address: got %v", err)
	}
	if _, err := New("nosuch", sim, 0); errcode.Of(err) != errcode.UnknownDevice {
		t.Fatalf("unknown type: got %v", err)
	}
}

func TestSetReadModifyWrite(t *testing.T) {
	sim := &platform.SimI2C{}
	d := newEmu16(t, sim)

	if err := d.Set(map[string]uint64{"MODE": 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Exactly one register read and one register write.
	if len(sim.Log) != 2 {
		t.Fatalf("transactions: got %d, want 2 (%v)", len(sim.Log), sim.Log)
	}
	if got := sim.Log[0]; got.W[0] != 0x01 || got.RN != 2 {
		t.Fatalf("first transaction not a read of reg 1: %+v", got)
	}
	w := sim.Writes(0x01)
	if len(w) != 1 || w[0][0] != 0x01 || w[0][1] != 0x00 {
		t.Fatalf("written word: got % x, want 01 00", w)
	}

	// The written field is now cached; its sibling is not.
	got, err := d.Get("MODE")
	if err != nil || got["MODE"] != uint64(1) {
		t.Fatalf("Get(MODE): %v, %v", got, err)
	}
	if len(sim.Log) != 2 {
		t.Fatalf("Get touched the bus: %d transactions", len(sim.Log))
	}
	if _, err := d.Get("RATE"); errcode.Of(err) != errcode.FieldUnread {
		t.Fatalf("Get(RATE) on unread field: got %v", err)
	}
}

func TestSetPreservesSiblingBits(t *testing.T) {
	sim := &platform.SimI2C{Regs: map[uint8][]byte{
		0x01: {0x00, 0x60}, // RATE already holds 3
	}}
	d := newEmu16(t, sim)

	if err := d.Set(map[string]uint64{"MODE": 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	w := sim.Writes(0x01)
	if len(w) != 1 || w[0][0] != 0x01 || w[0][1] != 0x60 {
		t.Fatalf("written word: got % x, want 01 60", w)
	}
	got, err := d.Read("RATE")
	if err != nil || got["RATE"] != uint64(3) {
		t.Fatalf("sibling after write: %v, %v", got, err)
	}
}

func TestSetValidatesBeforeBus(t *testing.T) {
	sim := &platform.SimI2C{}
	d := newEmu16(t, sim)

	err := d.Set(map[string]uint64{"MODE": 1, "RATE": 9}) // RATE is 3 bits
	if errcode.Of(err) != errcode.ValueRange {
		t.Fatalf("wide value: got %v", err)
	}
	err = d.Set(map[string]uint64{"BOGUS": 1})
	if errcode.Of(err) != errcode.UnknownField {
		t.Fatalf("unknown field: got %v", err)
	}
	if len(sim.Log) != 0 {
		t.Fatalf("rejected Set touched the bus: %v", sim.Log)
	}
}

func TestReadDecodesAndCaches(t *testing.T) {
	sim := &platform.SimI2C{Regs: map[uint8][]byte{
		0x02: {0x00, 0x02},
	}}
	d := newEmu16(t, sim)

	got, err := d.Read("GAIN")
	if err != nil || got["GAIN"] != 4.0 {
		t.Fatalf("Read(GAIN): %v, %v", got, err)
	}
	n := len(sim.Log)
	got, err = d.Get("GAIN")
	if err != nil || got["GAIN"] != 4.0 {
		t.Fatalf("Get(GAIN): %v, %v", got, err)
	}
	if len(sim.Log) != n {
		t.Fatal("cached Get touched the bus")
	}
}

func TestReadAllGroupsByRegister(t *testing.T) {
	sim := &platform.SimI2C{Regs: map[uint8][]byte{
		0x01: {0x01, 0x60},
		0x02: {0x00, 0x01},
	}}
	d := newEmu16(t, sim)

	got, err := d.Read()
	if err != nil {
		t.Fatalf("Read(): %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Read() fields: got %v", got)
	}
	// MODE and RATE share a register: two registers, two reads, ascending.
	if len(sim.Log) != 2 || sim.Log[0].W[0] != 0x01 || sim.Log[1].W[0] != 0x02 {
		t.Fatalf("register reads: %v", sim.Log)
	}
	if got["MODE"] != uint64(1) || got["RATE"] != uint64(3) || got["GAIN"] != 2.0 {
		t.Fatalf("decoded values: %v", got)
	}

	all, err := d.Get()
	if err != nil || len(all) != 3 {
		t.Fatalf("Get() after Read(): %v, %v", all, err)
	}
}

func TestSetPartialFailureLeavesCacheCold(t *testing.T) {
	// Two registers are touched: read+write, read+write. Fail the last write
	// and make sure no field is cached, not even the one whose register was
	// written successfully.
	sim := &platform.SimI2C{FailAt: 4}
	d := newEmu16(t, sim)

	err := d.Set(map[string]uint64{"MODE": 1, "GAIN": 2})
	if errcode.Of(err) != errcode.BusIO {
		t.Fatalf("partial failure: got %v", err)
	}
	if _, err := d.Get("MODE"); errcode.Of(err) != errcode.FieldUnread {
		t.Fatalf("cache after partial failure: got %v", err)
	}
}

func TestDataRegisters(t *testing.T) {
	sim := &platform.SimI2C{}
	d := newEmu16(t, sim)

	if err := d.WriteData("OUT", 0xBEEF); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	w := sim.Writes(0x00)
	if len(w) != 1 || w[0][0] != 0xBE || w[0][1] != 0xEF {
		t.Fatalf("data write: got % x", w)
	}

	// A single data register may be addressed without a name.
	v, err := d.ReadData("")
	if err != nil || v != 0xBEEF {
		t.Fatalf("ReadData(\"\"): %#x, %v", v, err)
	}

	if _, err := d.ReadData("NOPE"); errcode.Of(err) != errcode.UnknownDataReg {
		t.Fatalf("unknown data reg: got %v", err)
	}
	n := len(sim.Log)
	if err := d.WriteData("OUT", 0x1_0000); errcode.Of(err) != errcode.ValueRange {
		t.Fatalf("wide data value: got %v", err)
	}
	if len(sim.Log) != n {
		t.Fatal("rejected WriteData touched the bus")
	}
}

func TestDataRegisterAmbiguity(t *testing.T) {
	sim := &platform.SimI2C{}
	d, err := New("emu8", sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d.ReadData(""); errcode.Of(err) != errcode.AmbiguousDataReg {
		t.Fatalf("two data regs without a name: got %v", err)
	}
	sim.Regs = map[uint8][]byte{0x28: {0xAB}}
	if v, err := d.ReadData("LO"); err != nil || v != 0xAB {
		t.Fatalf("ReadData(LO): %#x, %v", v, err)
	}
}

func TestLSBFirstByteOrder(t *testing.T) {
	sim := &platform.SimI2C{Regs: map[uint8][]byte{
		0x10: {0x02, 0x00}, // LOBIT set, low byte on the wire first
	}}
	d, err := New("emule", sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.SetField("HIBIT", 1); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	w := sim.Writes(0x10)
	if len(w) != 1 || w[0][0] != 0x02 || w[0][1] != 0x02 {
		t.Fatalf("written word: got % x, want 02 02", w)
	}
	got, err := d.Read("LOBIT")
	if err != nil || got["LOBIT"] != uint64(1) {
		t.Fatalf("sibling after write: %v, %v", got, err)
	}

	if err := d.WriteData("WORD", 0xBEEF); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	dw := sim.Writes(0x11)
	if len(dw) != 1 || dw[0][0] != 0xEF || dw[0][1] != 0xBE {
		t.Fatalf("data write: got % x, want ef be", dw)
	}
	if v, err := d.ReadData("WORD"); err != nil || v != 0xBEEF {
		t.Fatalf("ReadData: %#x, %v", v, err)
	}
}

func TestFieldHelpers(t *testing.T) {
	sim := &platform.SimI2C{Regs: map[uint8][]byte{0x02: {0x00, 0x03}}}
	d := newEmu16(t, sim)

	if v, err := d.ReadField("GAIN"); err != nil || v != 8.0 {
		t.Fatalf("ReadField: %v, %v", v, err)
	}
	if v, err := d.GetField("GAIN"); err != nil || v != 8.0 {
		t.Fatalf("GetField: %v, %v", v, err)
	}
	if err := d.SetField("RATE", 5); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if v, err := d.GetField("RATE"); err != nil || v != uint64(5) {
		t.Fatalf("GetField after SetField: %v, %v", v, err)
	}
}

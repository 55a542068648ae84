package dac8574

import (
	"testing"
	"time"

	"regmap-go/errcode"
	"regmap-go/platform"
	"regmap-go/regmap"
)

func TestSetRawWire(t *testing.T) {
	sim := &platform.SimI2C{}
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Regmap().Addr() != 0x4C {
		t.Fatalf("addr = %#x, want 0x4C", d.Regmap().Addr())
	}

	if err := d.SetRaw(1, 0xBEEF, LoadUpdate); err != nil {
		t.Fatalf("SetRaw: %v", err)
	}
	ws := sim.Writes(0x12) // ext 0, load 01, channel B
	if len(ws) != 1 || len(ws[0]) != 2 || ws[0][0] != 0xBE || ws[0][1] != 0xEF {
		t.Fatalf("wire = %v, want [[0xBE 0xEF]] at 0x12", ws)
	}

	if err := d.SetRaw(4, 0, LoadStore); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("channel 4 err = %v, want InvalidParams", err)
	}
	if err := d.SetRaw(0, 0, Load(3)); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("load 3 err = %v, want InvalidParams", err)
	}
}

func TestSetAllBroadcast(t *testing.T) {
	sim := &platform.SimI2C{}
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.SetAll(0x8000); err != nil {
		t.Fatalf("SetAll: %v", err)
	}
	ws := sim.Writes(0x34)
	if len(ws) != 1 || ws[0][0] != 0x80 || ws[0][1] != 0x00 {
		t.Fatalf("wire = %v, want [[0x80 0x00]] at 0x34", ws)
	}

	d.Configure(Config{ExtAddr: 2})
	if err := d.SetRaw(0, 0x0102, LoadStore); err != nil {
		t.Fatalf("SetRaw: %v", err)
	}
	if ws := sim.Writes(0x80); len(ws) != 1 { // ext 2<<6, load 00, channel A
		t.Fatalf("ext-addr wire = %v, want one write at 0x80", ws)
	}
}

func TestMicrovoltsCalibration(t *testing.T) {
	sim := &platform.SimI2C{}
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		uv   int32
		code uint16
	}{
		{2_486_000, 0xFFFF}, // full scale
		{19_000, 0},         // zero offset
		{0, 0},              // clamps below offset
		{3_000_000, 0xFFFF}, // clamps above reference
		{1_252_500, 32767},  // mid scale
	}
	for _, c := range cases {
		if got := d.CodeOf(c.uv); got != c.code {
			t.Fatalf("CodeOf(%d) = %d, want %d", c.uv, got, c.code)
		}
	}

	if uv := d.MicrovoltsOf(0); uv != 19_000 {
		t.Fatalf("MicrovoltsOf(0) = %d, want 19000", uv)
	}
	if uv := d.MicrovoltsOf(0xFFFF); uv != 2_486_000 {
		t.Fatalf("MicrovoltsOf(max) = %d, want 2486000", uv)
	}

	if err := d.SetMicrovolts(0, 1_252_500, LoadUpdate); err != nil {
		t.Fatalf("SetMicrovolts: %v", err)
	}
	ws := sim.Writes(0x10)
	if len(ws) != 1 || ws[0][0] != 0x7F || ws[0][1] != 0xFF {
		t.Fatalf("wire = %v, want [[0x7F 0xFF]]", ws)
	}
}

func TestSetRatio(t *testing.T) {
	sim := &platform.SimI2C{}
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		num, den uint16
		code     uint16
	}{
		{0, 4, 0},
		{4, 4, 0xFFFF},
		{1, 2, 0x8000}, // 65535/2 rounds up
		{5, 4, 0xFFFF}, // saturates
	}
	for _, c := range cases {
		if err := d.SetRatio(2, c.num, c.den, LoadUpdate); err != nil {
			t.Fatalf("SetRatio(%d/%d): %v", c.num, c.den, err)
		}
	}
	ws := sim.Writes(0x14) // ext 0, load 01, channel C
	if len(ws) != len(cases) {
		t.Fatalf("%d writes, want %d", len(ws), len(cases))
	}
	for i, c := range cases {
		got := uint16(ws[i][0])<<8 | uint16(ws[i][1])
		if got != c.code {
			t.Fatalf("ratio %d/%d wrote %#x, want %#x", c.num, c.den, got, c.code)
		}
	}

	if err := d.SetRatio(0, 1, 0, LoadUpdate); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("zero denominator err = %v, want InvalidParams", err)
	}
}

func TestSweep(t *testing.T) {
	sim := &platform.SimI2C{}
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.SetRaw(0, 0, LoadUpdate); err != nil {
		t.Fatalf("SetRaw: %v", err)
	}

	ticks := 0
	tick := func(time.Duration) bool { ticks++; return true }
	if err := d.Sweep(0, 1000, 10, 4, LoadUpdate, tick); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if ticks != 3 {
		t.Fatalf("ticks = %d, want 3", ticks)
	}
	ws := sim.Writes(0x10)
	wantCodes := []uint16{0, 250, 500, 750, 1000}
	if len(ws) != len(wantCodes) {
		t.Fatalf("%d writes, want %d", len(ws), len(wantCodes))
	}
	for i, c := range wantCodes {
		got := uint16(ws[i][0])<<8 | uint16(ws[i][1])
		if got != c {
			t.Fatalf("write %d = %d, want %d", i, got, c)
		}
	}

	// steps==0 snaps straight to the target.
	if err := d.Sweep(1, 123, 0, 0, LoadUpdate, tick); err != nil {
		t.Fatalf("snap Sweep: %v", err)
	}
	ws = sim.Writes(0x12)
	if len(ws) != 1 || uint16(ws[0][0])<<8|uint16(ws[0][1]) != 123 {
		t.Fatalf("snap wire = %v, want code 123", ws)
	}
}

func TestEngineDataPath(t *testing.T) {
	sim := &platform.SimI2C{}
	dev, err := regmap.New(Type, sim, 0x4E)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := dev.WriteData("TRB", 0x1234); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	ws := sim.Writes(0x02)
	if len(ws) != 1 || ws[0][0] != 0x12 || ws[0][1] != 0x34 {
		t.Fatalf("wire = %v, want [[0x12 0x34]] at 0x02", ws)
	}
	v, err := dev.ReadData("TRB")
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if v != 0x1234 {
		t.Fatalf("readback = %#x, want 0x1234", v)
	}
}

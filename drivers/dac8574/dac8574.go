// Package dac8574 drives the TI DAC8574 quad 16-bit DAC. Each write is a
// control byte followed by the 16-bit code, MSB first. The control byte
// carries the extended address pins A3:A2, the load mode and the channel
// select, so the same wire transaction stores to a temp register, updates
// one channel, or broadcasts to all four.
//
//	dac, _ := dac8574.New(bus, 0)
//	_ = dac.SetMicrovolts(0, 1_250_000, dac8574.LoadUpdate)
//	_ = dac.Sweep(1, 0xFFFF, 500, 50, dac8574.LoadUpdate, nil)
//
// The temp registers of channels A-D are also registered as engine data
// registers TRA-TRD (extended address 0), so generic tooling can store and
// read codes without this facade.
package dac8574

import (
	"time"

	"tinygo.org/x/drivers"

	"regmap-go/errcode"
	"regmap-go/regmap"
	"regmap-go/x/bitx"
	"regmap-go/x/mathx"
	"regmap-go/x/ramp"
)

// Type tags the register map.
const Type = "dac8574"

// Load selects what a write does beyond storing the code.
type Load uint8

const (
	// LoadStore writes the temp register only.
	LoadStore Load = 0b00
	// LoadUpdate writes the temp register and updates the channel output.
	LoadUpdate Load = 0b01
	// LoadSync writes the temp register and updates all four channels
	// from their temp registers.
	LoadSync Load = 0b10
)

// ctrlAll is the broadcast control: every channel updates with this code.
const ctrlAll = 0b0011_0100

func init() {
	regmap.Register(Type, regmap.Map{
		RegWidth: 1,
		Data: map[string]regmap.DataReg{
			"TRA": {Reg: 0x00, Width: 2},
			"TRB": {Reg: 0x02, Width: 2},
			"TRC": {Reg: 0x04, Width: 2},
			"TRD": {Reg: 0x06, Width: 2},
		},
		Addrs:       []uint16{0x4C, 0x4D, 0x4E, 0x4F},
		DefaultAddr: 0x4C,
	})
}

// Config holds board calibration. Zero values select the defaults.
type Config struct {
	// ExtAddr is the A3:A2 extended address, 0-3.
	ExtAddr uint8
	// RefUV is the output at full code, µV. Default 2486000.
	RefUV int32
	// OffUV is the output at code zero, µV. Default 19000.
	OffUV int32
}

// Device wraps one DAC8574.
type Device struct {
	dev  *regmap.Device
	cfg  Config
	cur  [4]uint16
	wbuf [2]byte
}

// New opens a DAC8574. addr 0 selects 0x4C.
func New(bus drivers.I2C, addr uint16) (*Device, error) {
	dev, err := regmap.New(Type, bus, addr)
	if err != nil {
		return nil, err
	}
	d := &Device{dev: dev}
	d.Configure()
	return d, nil
}

// Configure applies optional config and fills defaults.
func (d *Device) Configure(cfgs ...Config) {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.RefUV == 0 {
		c.RefUV = 2_486_000
	}
	if c.OffUV == 0 {
		c.OffUV = 19_000
	}
	d.cfg = c
}

// Regmap exposes the underlying engine.
func (d *Device) Regmap() *regmap.Device { return d.dev }

func (d *Device) ctrl(ch int, load Load) uint8 {
	return d.cfg.ExtAddr<<6 | uint8(load)<<4 | uint8(ch)<<1
}

// SetRaw writes code to channel ch with the given load mode.
func (d *Device) SetRaw(ch int, code uint16, load Load) error {
	if ch < 0 || ch > 3 {
		return &errcode.E{C: errcode.InvalidParams, Op: "dac8574.set", Msg: "channel out of range"}
	}
	if load > LoadSync {
		return &errcode.E{C: errcode.InvalidParams, Op: "dac8574.set", Msg: "bad load mode"}
	}
	d.wbuf[0] = byte(code >> 8)
	d.wbuf[1] = byte(code)
	if err := d.dev.Transport().WriteReg(d.ctrl(ch, load), d.wbuf[:2]); err != nil {
		return err
	}
	d.cur[ch] = code
	return nil
}

// SetAll broadcasts code to every channel in one transaction.
func (d *Device) SetAll(code uint16) error {
	d.wbuf[0] = byte(code >> 8)
	d.wbuf[1] = byte(code)
	if err := d.dev.Transport().WriteReg(d.cfg.ExtAddr<<6|ctrlAll, d.wbuf[:2]); err != nil {
		return err
	}
	for ch := range d.cur {
		d.cur[ch] = code
	}
	return nil
}

// ReadRaw reads back the temp register of channel ch.
func (d *Device) ReadRaw(ch int) (uint16, error) {
	if ch < 0 || ch > 3 {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "dac8574.read", Msg: "channel out of range"}
	}
	var buf [2]byte
	if err := d.dev.Transport().ReadReg(d.ctrl(ch, LoadStore), buf[:]); err != nil {
		return 0, err
	}
	return uint16(bitx.FromBytes(buf[:])), nil
}

// CodeOf converts µV to the nearest code under the configured calibration.
func (d *Device) CodeOf(uv int32) uint16 {
	span := int64(d.cfg.RefUV) - int64(d.cfg.OffUV)
	if span <= 0 {
		return 0
	}
	code := (int64(uv) - int64(d.cfg.OffUV)) * 65535 / span
	return uint16(mathx.Clamp(code, 0, 65535))
}

// MicrovoltsOf converts a code back to µV.
func (d *Device) MicrovoltsOf(code uint16) int32 {
	span := int64(d.cfg.RefUV) - int64(d.cfg.OffUV)
	return d.cfg.OffUV + int32(int64(code)*span/65535)
}

// SetMicrovolts writes the channel to the nearest code for uv.
func (d *Device) SetMicrovolts(ch int, uv int32, load Load) error {
	return d.SetRaw(ch, d.CodeOf(uv), load)
}

// SetRatio writes num/den of full scale to the channel. num above den
// saturates at full code.
func (d *Device) SetRatio(ch int, num, den uint16, load Load) error {
	if den == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "dac8574.set", Msg: "zero denominator"}
	}
	return d.SetRaw(ch, mathx.MapU16(num, 0, den, 0, 0xFFFF), load)
}

// Sweep ramps channel ch from its last written code to 'to' over
// durationMs in the given number of steps. tick owns timing and
// cancellation; nil selects a plain sleeper that stops on write error.
func (d *Device) Sweep(ch int, to uint16, durationMs uint32, steps uint16, load Load, tick ramp.Tick) error {
	if ch < 0 || ch > 3 {
		return &errcode.E{C: errcode.InvalidParams, Op: "dac8574.sweep", Msg: "channel out of range"}
	}
	var serr error
	if tick == nil {
		tick = func(dd time.Duration) bool {
			time.Sleep(dd)
			return serr == nil
		}
	}
	set := func(level uint16) {
		if serr != nil {
			return
		}
		serr = d.SetRaw(ch, level, load)
	}
	ramp.StartLinear(d.cur[ch], to, 0xFFFF, durationMs, steps, tick, set)
	return serr
}

// Package tca95xx drives TCA9545A (4-channel) and TCA9548A (8-channel)
// I2C switches. The part is a single control byte: writing it routes the
// upstream bus to any set of downstream channels, reading it returns the
// current routing.
//
//	sw, _ := tca95xx.New9545(bus, 0)
//	_ = sw.Enable(2)            // add channel 2 to the routing
//	on, _ := sw.Channels()      // {false, false, true, false}
//
// Device satisfies regmap.Selector, so sensors behind a switch hang a
// regmap.FocusGroup off it to claim the bus for one measurement at a time.
package tca95xx

import (
	"errors"

	"tinygo.org/x/drivers"

	"regmap-go/errcode"
	"regmap-go/regmap"
	"regmap-go/x/bitx"
)

// Device type tags.
const (
	Type9545 = "tca9545a"
	Type9548 = "tca9548a"
)

// ErrChannel reports a channel index outside the part's range.
var ErrChannel = errors.New("tca95xx: channel out of range")

func init() {
	// No configuration fields and no data registers: the whole part is one
	// control byte, handled below through the transport layer.
	regmap.Register(Type9545, regmap.Map{
		RegWidth: 1,
		Addrs:    []uint16{0x70, 0x71, 0x72, 0x73},
	})
	regmap.Register(Type9548, regmap.Map{
		RegWidth: 1,
		Addrs:    []uint16{0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77},
	})
}

// Device wraps one switch.
type Device struct {
	dev   *regmap.Device
	nchan int
}

// New9545 opens a TCA9545A. addr 0 selects 0x70.
func New9545(bus drivers.I2C, addr uint16) (*Device, error) {
	return open(Type9545, bus, addr, 4)
}

// New9548 opens a TCA9548A. addr 0 selects 0x70.
func New9548(bus drivers.I2C, addr uint16) (*Device, error) {
	return open(Type9548, bus, addr, 8)
}

func open(typ string, bus drivers.I2C, addr uint16, nchan int) (*Device, error) {
	dev, err := regmap.New(typ, bus, addr)
	if err != nil {
		return nil, err
	}
	return &Device{dev: dev, nchan: nchan}, nil
}

// Type returns the device type tag.
func (d *Device) Type() string { return d.dev.Type() }

// Addr returns the strapped bus address.
func (d *Device) Addr() uint16 { return d.dev.Addr() }

// Len returns the number of downstream channels.
func (d *Device) Len() int { return d.nchan }

// Channels reads the control byte and returns the enable state per channel.
// On the 9545A the upper read bits are interrupt flags, not routing; only
// channel bits are returned here (see Interrupts).
func (d *Device) Channels() ([]bool, error) {
	b, err := d.dev.Transport().ReadByte()
	if err != nil {
		return nil, err
	}
	return bitx.Bits(uint64(b), d.nchan), nil
}

// SetChannels writes a full routing in one control byte.
func (d *Device) SetChannels(on []bool) error {
	if len(on) != d.nchan {
		return &errcode.E{C: errcode.InvalidParams, Op: "tca95xx.set", Msg: "channel count mismatch"}
	}
	return d.dev.Transport().WriteByte(byte(bitx.FromBits(on)))
}

// Enable adds one channel to the routing, read-modify-write.
func (d *Device) Enable(ch int) error { return d.flip(ch, true) }

// Disable removes one channel from the routing, read-modify-write.
func (d *Device) Disable(ch int) error { return d.flip(ch, false) }

func (d *Device) flip(ch int, on bool) error {
	if ch < 0 || ch >= d.nchan {
		return ErrChannel
	}
	st, err := d.Channels()
	if err != nil {
		return err
	}
	st[ch] = on
	return d.SetChannels(st)
}

// EnableAll routes every channel at once.
func (d *Device) EnableAll() error {
	return d.dev.Transport().WriteByte(byte(bitx.FromBits(all(d.nchan))))
}

// DisableAll detaches every channel.
func (d *Device) DisableAll() error {
	return d.dev.Transport().WriteByte(0)
}

// Interrupts returns the INT3..INT0 flags of a 9545A, one per channel.
// The 9548A has no interrupt inputs.
func (d *Device) Interrupts() ([]bool, error) {
	if d.dev.Type() != Type9545 {
		return nil, &errcode.E{C: errcode.Unsupported, Op: "tca95xx.interrupts", Msg: d.dev.Type()}
	}
	b, err := d.dev.Transport().ReadByte()
	if err != nil {
		return nil, err
	}
	return bitx.Bits(uint64(b)>>4, 4), nil
}

func all(n int) []bool {
	on := make([]bool, n)
	for i := range on {
		on[i] = true
	}
	return on
}

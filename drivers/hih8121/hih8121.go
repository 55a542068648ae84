// Package hih8121 drives the Honeywell HIH8121 family of humidity and
// temperature sensors (HIH8120/8121/7120/7121 share the protocol). The
// part has no configuration registers at all: addressing it with a bare
// write starts a measurement, and a 4-byte read returns status, 14-bit
// humidity and 14-bit temperature in one word.
//
//	d, _ := hih8121.New(bus, 0)
//	d.Trigger()                    // start a measurement (fast)
//	hum, temp, err := d.Collect()  // fetch when ready; ErrNotReady while stale
//
// For convenience, d.Read() performs trigger + bounded polling until fresh
// data arrives. Values are micro-units: µ%RH and µ°C.
package hih8121

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"regmap-go/errcode"
	"regmap-go/regmap"
	"regmap-go/x/bitx"
)

// Device type tags. The four parts differ in accuracy grade and supply,
// not protocol.
const (
	Type8121 = "hih8121"
	Type8120 = "hih8120"
	Type7121 = "hih7121"
	Type7120 = "hih7120"
)

// Errors returned by the driver.
var (
	ErrNotReady = errors.New("hih8121: stale data")
	ErrProtocol = errors.New("hih8121: unexpected status")
)

// The counts span 2^14-2 because the codes 0x3FFF and 0x3FFE are reserved.
const countSpan = 1<<14 - 2

func init() {
	for _, typ := range []string{Type8121, Type8120, Type7121, Type7120} {
		regmap.Register(typ, regmap.Map{
			RegWidth: 1,
			Data: map[string]regmap.DataReg{
				"OUT": {Reg: 0x00, Width: 4},
			},
			Addrs: []uint16{0x27},
		})
		regmap.RegisterBuilder(typ, builder(typ))
	}
}

// Config controls scaling and sampling. All fields are optional; zero
// selects the HIH8121 datasheet value.
type Config struct {
	// Spans and offsets in micro-units (µ%RH, µ°C). Defaults: humidity
	// 0..100 %RH, temperature -40..125 °C.
	HumSpanU  int32
	HumZeroU  int32
	TempSpanU int32
	TempZeroU int32
	// PollInterval between Collect attempts in Read. Default 5 ms.
	PollInterval time.Duration
	// MeasTimeout bounds the total wait in Read. Default 100 ms; the part
	// converts in under 40 ms.
	MeasTimeout time.Duration
	// Group routes a channel switch around each measurement.
	Group *regmap.FocusGroup
	// Cycle holds label indexes (0 humidity, 1 temperature) for Next.
	// Default both, humidity first.
	Cycle []uint64
}

// Device wraps one sensor.
type Device struct {
	dev   *regmap.Device
	cfg   Config
	group *regmap.FocusGroup
	cycle *regmap.Cycler
}

// New opens an HIH8121 at its fixed address 0x27.
func New(bus drivers.I2C, addr uint16) (*Device, error) {
	return open(Type8121, bus, addr)
}

// NewType opens any part of the family by type tag.
func NewType(deviceType string, bus drivers.I2C, addr uint16) (*Device, error) {
	switch deviceType {
	case Type8121, Type8120, Type7121, Type7120:
	default:
		return nil, &errcode.E{C: errcode.UnknownDevice, Op: "hih8121.new", Msg: deviceType}
	}
	return open(deviceType, bus, addr)
}

func open(typ string, bus drivers.I2C, addr uint16) (*Device, error) {
	dev, err := regmap.New(typ, bus, addr)
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
	if c.HumSpanU == 0 {
		c.HumSpanU = 100_000_000
	}
	if c.TempSpanU == 0 {
		c.TempSpanU = 165_000_000
	}
	if c.TempZeroU == 0 {
		c.TempZeroU = -40_000_000
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	if c.MeasTimeout <= 0 {
		c.MeasTimeout = 100 * time.Millisecond
	}
	if len(c.Cycle) == 0 {
		c.Cycle = []uint64{0, 1}
	}
	d.cfg = c
	d.group = c.Group
	d.cycle = regmap.NewCycler(c.Cycle...)
}

// Trigger starts a measurement. The bare addressed write is the command.
func (d *Device) Trigger() error {
	return d.dev.Transport().WriteEmpty()
}

// Collect fetches the measurement word. While the part still serves the
// previous conversion it returns ErrNotReady.
func (d *Device) Collect() (humU, tempU int32, err error) {
	v, err := d.dev.ReadData("OUT")
	if err != nil {
		return 0, 0, err
	}
	switch bitx.Extract(v, 30, 2) {
	case 0: // fresh
	case 1:
		return 0, 0, ErrNotReady
	default: // command or diagnostic mode
		return 0, 0, ErrProtocol
	}
	humRaw := int64(bitx.Extract(v, 16, 14))
	tempRaw := int64(bitx.Extract(v, 2, 14))
	humU = int32(int64(d.cfg.HumSpanU)*humRaw/countSpan) + d.cfg.HumZeroU
	tempU = int32(int64(d.cfg.TempSpanU)*tempRaw/countSpan) + d.cfg.TempZeroU
	return humU, tempU, nil
}

// Read performs a full measurement cycle: Trigger followed by bounded
// polling until Collect returns fresh data or the timeout elapses.
func (d *Device) Read() (humU, tempU int32, err error) {
	if err := d.Trigger(); err != nil {
		return 0, 0, err
	}
	deadline := time.Now().Add(d.cfg.MeasTimeout)
	for {
		humU, tempU, err = d.Collect()
		switch err {
		case nil:
			return humU, tempU, nil
		case ErrNotReady:
			if time.Now().After(deadline) {
				return 0, 0, &errcode.E{C: errcode.Timeout, Op: "hih8121.read"}
			}
			time.Sleep(d.cfg.PollInterval)
		default:
			return 0, 0, err
		}
	}
}

// Regmap exposes the underlying engine.
func (d *Device) Regmap() *regmap.Device { return d.dev }

var labels = []string{"RH", "TEMP"}

// Labels names the Sample columns: relative humidity, then temperature.
func (d *Device) Labels() []string { return labels }

// Sample measures once behind a focus window and returns both values:
// µ%RH and µ°C.
func (d *Device) Sample() ([]int32, error) {
	if err := d.group.Focus(); err != nil {
		return nil, err
	}
	humU, tempU, err := d.Read()
	if uerr := d.group.Unfocus(); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, err
	}
	return []int32{humU, tempU}, nil
}

// Next measures once and returns the cycle's current column, rotating it.
func (d *Device) Next() (string, int32, error) {
	i, ok := d.cycle.Next()
	if !ok || i > 1 {
		i = 0
	}
	vals, err := d.Sample()
	if err != nil {
		return "", 0, err
	}
	return labels[i], vals[i], nil
}

func builder(typ string) regmap.SourceBuilder {
	return func(in regmap.BuildInput) (regmap.Source, error) {
		for _, i := range in.Cycle {
			if i > 1 {
				return nil, &errcode.E{C: errcode.InvalidParams, Op: "hih8121.build", Msg: "cycle index out of range"}
			}
		}
		d, err := NewType(typ, in.Bus, in.Addr)
		if err != nil {
			return nil, err
		}
		d.Configure(Config{Cycle: in.Cycle, Group: in.Group})
		if len(in.Params) > 0 {
			if err := d.dev.Set(in.Params); err != nil {
				return nil, err
			}
		}
		return d, nil
	}
}

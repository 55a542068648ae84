// Package aht20 drives the Aosong AHT20 humidity and temperature sensor.
// The part is command driven rather than register mapped: a trigger command
// starts a conversion and a direct 7-byte read returns a status byte plus
// two 20-bit readings packed together.
//
//	d, _ := aht20.New(bus, 0)
//	d.Trigger()                    // start a conversion (fast)
//	hum, temp, err := d.Collect()  // fetch when ready; ErrNotReady while busy
//
// d.Read() performs init-if-needed, trigger and bounded polling in one call.
// Values are micro-units: µ%RH and µ°C.
package aht20

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"regmap-go/errcode"
	"regmap-go/regmap"
)

// Type tags the part in the device catalog.
const Type = "aht20"

const (
	cmdTrigger = 0xAC // args 0x33, 0x00
	cmdInit    = 0xBE // args 0x08, 0x00
	cmdReset   = 0xBA
	cmdStatus  = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

// Errors returned by the driver.
var (
	ErrNotReady     = errors.New("aht20: conversion in progress")
	ErrUncalibrated = errors.New("aht20: not calibrated")
)

func init() {
	// No register file; the catalog entry carries the address and the type
	// tag, everything else goes through the transport.
	regmap.Register(Type, regmap.Map{
		RegWidth: 1,
		Addrs:    []uint16{0x38},
	})
	regmap.RegisterBuilder(Type, builder)
}

// Config controls sampling. All fields are optional.
type Config struct {
	// PollInterval between Collect attempts in Read. Default 10 ms.
	PollInterval time.Duration
	// MeasTimeout bounds the total wait in Read. Default 250 ms; the part
	// converts in under 80 ms.
	MeasTimeout time.Duration
	// Group routes a channel switch around each measurement.
	Group *regmap.FocusGroup
	// Cycle holds label indexes (0 humidity, 1 temperature) for Next.
	// Default both, humidity first.
	Cycle []uint64
}

// Device wraps one sensor.
type Device struct {
	dev    *regmap.Device
	cfg    Config
	group  *regmap.FocusGroup
	cycle  *regmap.Cycler
	inited bool
	buf    [7]byte
}

// New opens an AHT20 at its fixed address 0x38.
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
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.MeasTimeout <= 0 {
		c.MeasTimeout = 250 * time.Millisecond
	}
	if len(c.Cycle) == 0 {
		c.Cycle = []uint64{0, 1}
	}
	d.cfg = c
	d.group = c.Group
	d.cycle = regmap.NewCycler(c.Cycle...)
}

// Regmap exposes the underlying engine.
func (d *Device) Regmap() *regmap.Device { return d.dev }

// Status reads the status byte.
func (d *Device) Status() (byte, error) {
	var b [1]byte
	if err := d.dev.Transport().ReadReg(cmdStatus, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Init calibrates the part when it powered up uncalibrated. Most parts ship
// with the calibration flag already set, making this a single status read.
func (d *Device) Init() error {
	if d.inited {
		return nil
	}
	st, err := d.Status()
	if err != nil {
		return err
	}
	if st&statusCalibrated == 0 {
		if err := d.dev.Transport().WriteReg(cmdInit, []byte{0x08, 0x00}); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
	d.inited = true
	return nil
}

// Reset issues a soft reset. The part needs about 20 ms afterwards.
func (d *Device) Reset() error {
	d.inited = false
	return d.dev.Transport().WriteByte(cmdReset)
}

// Trigger starts a conversion.
func (d *Device) Trigger() error {
	return d.dev.Transport().WriteReg(cmdTrigger, []byte{0x33, 0x00})
}

// Collect fetches the measurement block. While the conversion is still
// running it returns ErrNotReady. The trailing CRC byte is not checked.
func (d *Device) Collect() (humU, tempU int32, err error) {
	if err := d.dev.Transport().ReadDirect(d.buf[:]); err != nil {
		return 0, 0, err
	}
	if d.buf[0]&statusBusy != 0 {
		return 0, 0, ErrNotReady
	}
	if d.buf[0]&statusCalibrated == 0 {
		return 0, 0, ErrUncalibrated
	}
	hraw := uint32(d.buf[1])<<12 | uint32(d.buf[2])<<4 | uint32(d.buf[3])>>4
	traw := uint32(d.buf[3]&0x0F)<<16 | uint32(d.buf[4])<<8 | uint32(d.buf[5])
	// Full scale 2^20 counts: 0..100 %RH and -50..150 °C.
	humU = int32(int64(hraw) * 100_000_000 >> 20)
	tempU = int32(int64(traw)*200_000_000>>20) - 50_000_000
	return humU, tempU, nil
}

// Read performs a full measurement cycle: init if needed, Trigger, then
// bounded polling until Collect returns data or the timeout elapses.
func (d *Device) Read() (humU, tempU int32, err error) {
	if err := d.Init(); err != nil {
		return 0, 0, err
	}
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
				return 0, 0, &errcode.E{C: errcode.Timeout, Op: "aht20.read"}
			}
			time.Sleep(d.cfg.PollInterval)
		default:
			return 0, 0, err
		}
	}
}

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

func builder(in regmap.BuildInput) (regmap.Source, error) {
	for _, i := range in.Cycle {
		if i > 1 {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "aht20.build", Msg: "cycle index out of range"}
		}
	}
	if len(in.Params) > 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "aht20.build", Msg: "part has no writable fields"}
	}
	d, err := New(in.Bus, in.Addr)
	if err != nil {
		return nil, err
	}
	d.Configure(Config{Cycle: in.Cycle, Group: in.Group})
	return d, nil
}

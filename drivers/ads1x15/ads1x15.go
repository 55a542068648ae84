// Package ads1x15 drives the ADS111x (16-bit) and ADS101x (12-bit) delta-
// sigma ADC family. The parts share one 16-bit config register; the family
// differences are pure register-map data: the ADS1115/1015 add an input
// mux, the ADS1114/1014 keep the PGA and comparator, and the ADS1113/1013
// are fixed at ±2.048 V full scale.
//
//	adc, _ := ads1x15.New(ads1x15.Type1115, bus, 0x48)
//	adc.Configure(ads1x15.Config{Cycle: []uint64{ads1x15.MuxAIN0, ads1x15.MuxAIN1}})
//	uv, _ := adc.SingleOn(ads1x15.MuxAIN0) // one conversion, microvolts
//	vals, _ := adc.Sample()                // full sweep of the cycle
//
// The 12-bit parts left-align their result, so the same two's-complement
// scaling applies across the family.
package ads1x15

import (
	"time"

	"tinygo.org/x/drivers"

	"regmap-go/errcode"
	"regmap-go/regmap"
	"regmap-go/x/bitx"
	"regmap-go/x/mathx"
)

// Device type tags.
const (
	Type1115 = "ads1115"
	Type1114 = "ads1114"
	Type1113 = "ads1113"
	Type1015 = "ads1015"
	Type1014 = "ads1014"
	Type1013 = "ads1013"
)

// Input mux codes (raw MUX field values).
const (
	MuxAIN0AIN1 uint64 = 0b000
	MuxAIN0AIN3 uint64 = 0b001
	MuxAIN1AIN3 uint64 = 0b010
	MuxAIN2AIN3 uint64 = 0b011
	MuxAIN0     uint64 = 0b100
	MuxAIN1     uint64 = 0b101
	MuxAIN2     uint64 = 0b110
	MuxAIN3     uint64 = 0b111
)

const regConf = 0x01

func init() {
	dr16 := []any{8, 16, 32, 64, 128, 250, 475, 860}
	// Codes 110 and 111 both select the top rate on the 12-bit parts.
	dr12 := []any{128, 250, 490, 920, 1600, 2400, 3300, 3300}

	regmap.Register(Type1115, family(true, true, dr16))
	regmap.Register(Type1114, family(false, true, dr16))
	regmap.Register(Type1113, family(false, false, dr16))
	regmap.Register(Type1015, family(true, true, dr12))
	regmap.Register(Type1014, family(false, true, dr12))
	regmap.Register(Type1013, family(false, false, dr12))

	for _, typ := range []string{Type1115, Type1114, Type1113, Type1015, Type1014, Type1013} {
		regmap.RegisterBuilder(typ, builder(typ))
	}
}

// family assembles the register map for one part: the shared core, plus the
// mux and the PGA/comparator blocks where the part has them.
func family(mux, pga bool, dr []any) regmap.Map {
	fields := map[string]regmap.Field{
		"OS":   {Reg: regConf, Start: 15, Width: 1, Info: "status; write 1 to start single-shot", Decode: []any{"CONV", "IDLE"}},
		"MODE": {Reg: regConf, Start: 8, Width: 1, Info: "operating mode", Decode: []any{"CONT", "SNGL"}},
		"DR":   {Reg: regConf, Start: 5, Width: 3, Info: "data rate, SPS", Decode: dr},
	}
	data := map[string]regmap.DataReg{
		"CONV": {Reg: 0x00, Width: 2},
	}
	if mux {
		fields["MUX"] = regmap.Field{Reg: regConf, Start: 12, Width: 3, Info: "input multiplexer", Decode: []any{
			"AIN0-AIN1", "AIN0-AIN3", "AIN1-AIN3", "AIN2-AIN3",
			"AIN0-GND", "AIN1-GND", "AIN2-GND", "AIN3-GND",
		}}
	}
	if pga {
		fields["PGA"] = regmap.Field{Reg: regConf, Start: 9, Width: 3, Info: "full-scale range, V", Decode: []any{
			6.144, 4.096, 2.048, 1.024, 0.512, 0.256, 0.256, 0.256,
		}}
		fields["COMP_MODE"] = regmap.Field{Reg: regConf, Start: 4, Width: 1, Info: "comparator mode"}
		fields["COMP_POL"] = regmap.Field{Reg: regConf, Start: 3, Width: 1, Info: "alert polarity"}
		fields["COMP_LAT"] = regmap.Field{Reg: regConf, Start: 2, Width: 1, Info: "latching alert"}
		fields["COMP_QUE"] = regmap.Field{Reg: regConf, Start: 0, Width: 2, Info: "comparator queue", Decode: []any{1, 2, 4, "OFF"}}
		data["LOTH"] = regmap.DataReg{Reg: 0x02, Width: 2}
		data["HITH"] = regmap.DataReg{Reg: 0x03, Width: 2}
	}
	return regmap.Map{
		RegWidth:    2,
		Fields:      fields,
		Data:        data,
		Addrs:       []uint16{0x48, 0x49, 0x4A, 0x4B},
		DefaultAddr: 0x48,
	}
}

// Config controls sampling behaviour. All fields are optional.
type Config struct {
	// Cycle lists the raw mux codes (0-7) that Sample sweeps and Next
	// rotates through. Defaults to AIN0-GND on parts with a mux; ignored
	// on parts without one.
	Cycle []uint64
	// Group routes a channel switch around each measurement.
	Group *regmap.FocusGroup
	// PollInterval between conversion-status reads. Default 2 ms.
	PollInterval time.Duration
	// ConvTimeout bounds one conversion. Default 250 ms, which covers the
	// slowest 8 SPS setting.
	ConvTimeout time.Duration
}

// Device wraps one ADC.
type Device struct {
	dev       *regmap.Device
	cfg       Config
	group     *regmap.FocusGroup
	cycle     *regmap.Cycler
	seq       []uint64
	hasMux    bool
	fsFixedUV int64 // nonzero on parts without a PGA
}

// New opens a part by type tag. addr 0 selects 0x48.
func New(deviceType string, bus drivers.I2C, addr uint16) (*Device, error) {
	switch deviceType {
	case Type1115, Type1114, Type1113, Type1015, Type1014, Type1013:
	default:
		return nil, &errcode.E{C: errcode.UnknownDevice, Op: "ads1x15.new", Msg: deviceType}
	}
	dev, err := regmap.New(deviceType, bus, addr)
	if err != nil {
		return nil, err
	}
	d := &Device{dev: dev}
	_, d.hasMux = dev.Map().Fields["MUX"]
	if _, pga := dev.Map().Fields["PGA"]; !pga {
		d.fsFixedUV = 2_048_000
	}
	d.Configure()
	return d, nil
}

// Configure applies optional config and fills defaults. It may be called
// again to change the cycle or routing.
func (d *Device) Configure(cfgs ...Config) {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Millisecond
	}
	if c.ConvTimeout <= 0 {
		c.ConvTimeout = 250 * time.Millisecond
	}
	if !d.hasMux {
		c.Cycle = nil
	} else if len(c.Cycle) == 0 {
		c.Cycle = []uint64{MuxAIN0}
	}
	d.cfg = c
	d.group = c.Group
	d.seq = c.Cycle
	d.cycle = regmap.NewCycler(c.Cycle...)
}

// Regmap exposes the underlying engine for field-level access.
func (d *Device) Regmap() *regmap.Device { return d.dev }

// fullScaleUV resolves the current full-scale range in microvolts from the
// cached PGA setting, reading it from the part the first time.
func (d *Device) fullScaleUV() (int64, error) {
	if d.fsFixedUV != 0 {
		return d.fsFixedUV, nil
	}
	v, err := d.dev.GetField("PGA")
	if errcode.Of(err) == errcode.FieldUnread {
		v, err = d.dev.ReadField("PGA")
	}
	if err != nil {
		return 0, err
	}
	fs, ok := v.(float64)
	if !ok {
		return 0, &errcode.E{C: errcode.Error, Op: "ads1x15.fs", Msg: "bad PGA decode"}
	}
	return int64(fs*1e6 + 0.5), nil
}

// Conversion reads the conversion register and scales it to microvolts
// using the current full-scale range.
func (d *Device) Conversion() (int32, error) {
	fs, err := d.fullScaleUV()
	if err != nil {
		return 0, err
	}
	raw, err := d.dev.ReadData("CONV")
	if err != nil {
		return 0, err
	}
	return int32(fs * bitx.Twos(raw, 16) / 32768), nil
}

// Single starts one single-shot conversion on the current input, waits for
// the part to go idle, and returns microvolts.
func (d *Device) Single() (int32, error) {
	return d.convert(map[string]uint64{"MODE": 1, "OS": 1})
}

// SingleOn switches the input mux first. Parts without a mux reject it.
func (d *Device) SingleOn(mux uint64) (int32, error) {
	return d.convert(map[string]uint64{"MUX": mux, "MODE": 1, "OS": 1})
}

// StartContinuous switches the part to continuous conversion on the given
// input; Conversion then returns the latest result without a trigger.
// Parts without a mux reject it.
func (d *Device) StartContinuous(mux uint64) error {
	return d.dev.Set(map[string]uint64{"MUX": mux, "MODE": 0})
}

func (d *Device) convert(fields map[string]uint64) (int32, error) {
	if err := d.dev.Set(fields); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(d.cfg.ConvTimeout)
	for {
		v, err := d.dev.ReadField("OS")
		if err != nil {
			return 0, err
		}
		if v == "IDLE" {
			break
		}
		if time.Now().After(deadline) {
			return 0, &errcode.E{C: errcode.Timeout, Op: "ads1x15.convert"}
		}
		time.Sleep(d.cfg.PollInterval)
	}
	return d.Conversion()
}

// SetWindow programs the comparator thresholds in microvolts. Thresholds
// share the conversion result's two's-complement scaling; values beyond
// the full-scale range are clamped.
func (d *Device) SetWindow(loUV, hiUV int32) error {
	fs, err := d.fullScaleUV()
	if err != nil {
		return err
	}
	lo := mathx.Clamp(int64(loUV)*32768/fs, -32768, 32767)
	hi := mathx.Clamp(int64(hiUV)*32768/fs, -32768, 32767)
	if err := d.dev.WriteData("LOTH", uint64(uint16(int16(lo)))); err != nil {
		return err
	}
	return d.dev.WriteData("HITH", uint64(uint16(int16(hi))))
}

// Labels names the sweep columns after the mux inputs, e.g. "AIN0-GND".
func (d *Device) Labels() []string {
	if !d.hasMux {
		return []string{"AIN0-AIN1"}
	}
	dec := d.dev.Map().Fields["MUX"].Decode
	names := make([]string, len(d.seq))
	for i, m := range d.seq {
		if int(m) < len(dec) {
			names[i] = dec[m].(string)
		} else {
			names[i] = "?"
		}
	}
	return names
}

// Sample sweeps the configured cycle behind one focus window: route the
// switch, one single-shot conversion per mux code, release the switch.
// One value per label, microvolts.
func (d *Device) Sample() ([]int32, error) {
	if err := d.group.Focus(); err != nil {
		return nil, err
	}
	out := make([]int32, 0, max(1, len(d.seq)))
	var err error
	if !d.hasMux {
		var v int32
		if v, err = d.Single(); err == nil {
			out = append(out, v)
		}
	} else {
		for _, m := range d.seq {
			var v int32
			if v, err = d.SingleOn(m); err != nil {
				break
			}
			out = append(out, v)
		}
	}
	if uerr := d.group.Unfocus(); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Next measures the head of the cycle and rotates it, returning the input
// label with the value. Parts without a mux always measure their one input.
func (d *Device) Next() (string, int32, error) {
	m, ok := d.cycle.Next()
	if err := d.group.Focus(); err != nil {
		return "", 0, err
	}
	var v int32
	var err error
	if ok {
		v, err = d.SingleOn(m)
	} else {
		v, err = d.Single()
	}
	if uerr := d.group.Unfocus(); err == nil {
		err = uerr
	}
	if err != nil {
		return "", 0, err
	}
	label := "AIN0-AIN1"
	if ok {
		label = d.dev.Map().Fields["MUX"].Decode[m].(string)
	}
	return label, v, nil
}

func builder(typ string) regmap.SourceBuilder {
	return func(in regmap.BuildInput) (regmap.Source, error) {
		for _, m := range in.Cycle {
			if m > MuxAIN3 {
				return nil, &errcode.E{C: errcode.InvalidParams, Op: "ads1x15.build", Msg: "mux code out of range"}
			}
		}
		d, err := New(typ, in.Bus, in.Addr)
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

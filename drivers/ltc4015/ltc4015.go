// Package ltc4015 drives the Analog Devices LTC4015 multi-chemistry buck
// battery charger. The part charges on its own from pin straps; this driver
// talks to its SMBus port for configuration bits, input limits, the coulomb
// counter and the telemetry block (battery, input and system rails, charge
// and input current, die temperature, battery resistance).
//
// Telemetry scaling is integer-only and follows the datasheet word formats:
// voltages come back in microvolts, currents in microamps across the
// configured sense resistors, temperature in microdegrees Celsius. Current
// readings fail until the matching sense resistor value is configured.
//
//	d, _ := ltc4015.New(bus, 0)
//	d.Configure(ltc4015.Config{RSnsBatUOhm: 4000, RSnsInUOhm: 3000})
//	uv, err := d.BatteryMicrovolts()
//	ua, err := d.BatteryMicroamps()
package ltc4015

import (
	"time"

	"tinygo.org/x/drivers"

	"regmap-go/errcode"
	"regmap-go/regmap"
	"regmap-go/x/bitx"
)

// Type tags the part in the device catalog.
const Type = "ltc4015"

// Word scaling, from the electrical characteristics tables.
const (
	nvPerLSBLi   = 192_264   // VBAT per cell, lithium variants
	nvPerLSBLead = 128_176   // VBAT per cell, lead-acid variants
	uvPerLSBRail = 1648      // VIN, VSYS
	pvPerLSBSns  = 1_464_870 // IBAT, IIN across the sense resistor
)

// chemNames decodes the CHEM strap readback (bits 11:8 of 0x43).
var chemNames = []any{
	"liion-prog", "liion-4.2", "liion-4.1", "liion-4.0",
	"lifepo4-prog", "lifepo4-fast", "lifepo4-3.6",
	"lead-acid-fixed", "lead-acid-prog",
	"reserved", "reserved", "reserved", "reserved",
	"reserved", "reserved", "reserved",
}

func init() {
	regmap.Register(Type, regmap.Map{
		RegWidth: 2,
		LSBFirst: true,
		Fields: map[string]regmap.Field{
			// CONFIG_BITS (0x14)
			"SUSPEND_CHARGER":   {Reg: 0x14, Start: 8, Width: 1, Info: "pause switching; telemetry keeps running"},
			"RUN_BSR":           {Reg: 0x14, Start: 5, Width: 1, Info: "kick off a battery resistance measurement"},
			"FORCE_MEAS_SYS_ON": {Reg: 0x14, Start: 4, Width: 1, Info: "run telemetry without charge current"},
			"MPPT_EN":           {Reg: 0x14, Start: 3, Width: 1, Info: "maximum power point tracking"},
			"EN_QCOUNT":         {Reg: 0x14, Start: 2, Width: 1, Info: "run the coulomb counter"},

			// Input limit settings
			"IIN_LIMIT": {Reg: 0x15, Start: 0, Width: 6, Info: "(code+1)*500uV across RSNSI"},
			"VIN_UVCL":  {Reg: 0x16, Start: 0, Width: 8, Info: "input undervoltage current limit level"},

			// Alert enables; masks share the matching alert register layout
			"EN_LIMIT_ALERTS":         {Reg: 0x0D, Start: 0, Width: 16},
			"EN_CHARGER_STATE_ALERTS": {Reg: 0x0E, Start: 0, Width: 16},
			"EN_CHARGE_STATUS_ALERTS": {Reg: 0x0F, Start: 0, Width: 16},

			// Pin strap readbacks
			"CHEM":       {Reg: 0x43, Start: 8, Width: 4, Info: "die chemistry variant", Decode: chemNames},
			"CELL_COUNT": {Reg: 0x43, Start: 0, Width: 4, Info: "strapped series cell count"},

			"MEAS_SYS_VALID": {Reg: 0x4A, Start: 0, Width: 1, Info: "telemetry filters have settled"},
		},
		Data: map[string]regmap.DataReg{
			"CHARGER_STATE": {Reg: 0x34, Width: 2},
			"CHARGE_STATUS": {Reg: 0x35, Width: 2},
			"LIMIT_ALERTS":  {Reg: 0x36, Width: 2},
			"SYSTEM_STATUS": {Reg: 0x39, Width: 2},
			"VBAT":          {Reg: 0x3A, Width: 2},
			"VIN":           {Reg: 0x3B, Width: 2},
			"VSYS":          {Reg: 0x3C, Width: 2},
			"IBAT":          {Reg: 0x3D, Width: 2},
			"IIN":           {Reg: 0x3E, Width: 2},
			"DIE_TEMP":      {Reg: 0x3F, Width: 2},
			"NTC_RATIO":     {Reg: 0x40, Width: 2},
			"BSR":           {Reg: 0x41, Width: 2},
			"CHEM_CELLS":    {Reg: 0x43, Width: 2},

			"QCOUNT_LO_LIMIT": {Reg: 0x10, Width: 2},
			"QCOUNT_HI_LIMIT": {Reg: 0x11, Width: 2},
			"QCOUNT_PRESCALE": {Reg: 0x12, Width: 2},
			"QCOUNT":          {Reg: 0x13, Width: 2},
		},
		Addrs: []uint16{0x68},
	})
	regmap.RegisterBuilder(Type, builder)
}

// Chemistry classes the strapped variant for voltage scaling.
type Chemistry uint8

const (
	ChemUnknown Chemistry = iota
	ChemLithium
	ChemLeadAcid
)

func chemOf(code uint64) Chemistry {
	switch {
	case code <= 6:
		return ChemLithium
	case code <= 8:
		return ChemLeadAcid
	}
	return ChemUnknown
}

// Builder params consumed by the driver instead of being written to
// registers.
const (
	ParamRSnsBat = "RSNSB_UOHM"
	ParamRSnsIn  = "RSNSI_UOHM"
	ParamCells   = "CELLS"
)

// Config holds driver-level settings. All fields are optional; chemistry
// and cell count are read from the pin straps when left zero.
type Config struct {
	// Sense resistor values in microohms: battery path and input path.
	// The matching current readings fail while a value is zero.
	RSnsBatUOhm uint32
	RSnsInUOhm  uint32
	// Cells overrides the strapped series cell count.
	Cells uint8
	// Chem overrides chemistry detection.
	Chem Chemistry
	// PollInterval between validity checks in EnsureValid. Default 10 ms.
	PollInterval time.Duration
	// MeasTimeout bounds EnsureValid. Default 250 ms; the telemetry system
	// settles within a few conversion rounds of roughly 35 ms each.
	MeasTimeout time.Duration
	// Group routes a channel switch around each sample.
	Group *regmap.FocusGroup
	// Cycle holds Sample column indexes for Next. Default all columns.
	Cycle []uint64
}

// Device wraps one charger.
type Device struct {
	dev    *regmap.Device
	cfg    Config
	group  *regmap.FocusGroup
	cycle  *regmap.Cycler
	chem   Chemistry
	cells  uint8
	labels []string
	cols   []func() (int32, error)
}

// New opens an LTC4015. addr 0 selects the part's fixed address 0x68.
func New(bus drivers.I2C, addr uint16) (*Device, error) {
	dev, err := regmap.New(Type, bus, addr)
	if err != nil {
		return nil, err
	}
	d := &Device{dev: dev}
	d.Configure()
	return d, nil
}

// Configure applies optional config and fills defaults. It does not touch
// the bus; strap detection happens on first use.
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
	d.cfg = c
	d.group = c.Group
	d.chem = c.Chem
	d.cells = c.Cells
	d.buildColumns()
	if len(c.Cycle) == 0 {
		c.Cycle = make([]uint64, len(d.cols))
		for i := range c.Cycle {
			c.Cycle[i] = uint64(i)
		}
	}
	d.cycle = regmap.NewCycler(c.Cycle...)
}

// buildColumns fixes the Sample column set. Current columns appear only
// when the matching sense resistor is known.
func (d *Device) buildColumns() {
	d.labels = d.labels[:0]
	d.cols = d.cols[:0]
	add := func(label string, read func() (int32, error)) {
		d.labels = append(d.labels, label)
		d.cols = append(d.cols, read)
	}
	add("VBAT", d.BatteryMicrovolts)
	if d.cfg.RSnsBatUOhm != 0 {
		add("IBAT", d.BatteryMicroamps)
	}
	add("VIN", d.InputMicrovolts)
	if d.cfg.RSnsInUOhm != 0 {
		add("IIN", d.InputMicroamps)
	}
	add("VSYS", d.SystemMicrovolts)
	add("DIETEMP", d.DieTempMicrocelsius)
}

// Regmap exposes the underlying engine for field-level access.
func (d *Device) Regmap() *regmap.Device { return d.dev }

// probe fills chemistry and cell count from the strap readback register
// unless Configure overrode them.
func (d *Device) probe() error {
	if d.chem != ChemUnknown && d.cells != 0 {
		return nil
	}
	raw, err := d.dev.ReadData("CHEM_CELLS")
	if err != nil {
		return err
	}
	if d.chem == ChemUnknown {
		d.chem = chemOf(bitx.Extract(raw, 8, 4))
	}
	if d.cells == 0 {
		d.cells = uint8(bitx.Extract(raw, 0, 4))
	}
	return nil
}

// Chem returns the chemistry class, detecting it on first use.
func (d *Device) Chem() (Chemistry, error) {
	if err := d.probe(); err != nil {
		return ChemUnknown, err
	}
	return d.chem, nil
}

// Cells returns the series cell count, detecting it on first use.
func (d *Device) Cells() (uint8, error) {
	if err := d.probe(); err != nil {
		return 0, err
	}
	return d.cells, nil
}

// BatteryCellMicrovolts returns the per-cell battery voltage.
func (d *Device) BatteryCellMicrovolts() (int32, error) {
	if err := d.probe(); err != nil {
		return 0, err
	}
	raw, err := d.dev.ReadData("VBAT")
	if err != nil {
		return 0, err
	}
	nv := int64(nvPerLSBLi)
	if d.chem == ChemLeadAcid {
		nv = nvPerLSBLead
	}
	return int32(int64(raw) * nv / 1000), nil
}

// BatteryMicrovolts returns the pack voltage, per-cell times cell count.
func (d *Device) BatteryMicrovolts() (int32, error) {
	cell, err := d.BatteryCellMicrovolts()
	if err != nil {
		return 0, err
	}
	if d.cells == 0 {
		return cell, nil
	}
	return cell * int32(d.cells), nil
}

// InputMicrovolts returns the VIN rail voltage.
func (d *Device) InputMicrovolts() (int32, error) {
	return d.rail("VIN")
}

// SystemMicrovolts returns the VSYS rail voltage.
func (d *Device) SystemMicrovolts() (int32, error) {
	return d.rail("VSYS")
}

func (d *Device) rail(name string) (int32, error) {
	raw, err := d.dev.ReadData(name)
	if err != nil {
		return 0, err
	}
	return int32(int64(raw) * uvPerLSBRail), nil
}

// BatteryMicroamps returns the charge current; negative means discharge.
func (d *Device) BatteryMicroamps() (int32, error) {
	return d.current("IBAT", d.cfg.RSnsBatUOhm)
}

// InputMicroamps returns the input current.
func (d *Device) InputMicroamps() (int32, error) {
	return d.current("IIN", d.cfg.RSnsInUOhm)
}

func (d *Device) current(name string, rsnsUOhm uint32) (int32, error) {
	if rsnsUOhm == 0 {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "ltc4015.current", Msg: name + " sense resistor unset"}
	}
	raw, err := d.dev.ReadData(name)
	if err != nil {
		return 0, err
	}
	return int32(bitx.Twos(raw, 16) * pvPerLSBSns / int64(rsnsUOhm)), nil
}

// DieTempMicrocelsius returns the die temperature.
func (d *Device) DieTempMicrocelsius() (int32, error) {
	raw, err := d.dev.ReadData("DIE_TEMP")
	if err != nil {
		return 0, err
	}
	// T[C] = (word - 12010)/45.6
	return int32((bitx.Twos(raw, 16) - 12010) * 10_000_000 / 456), nil
}

// BatteryResistanceMicrohms returns the last per-cell battery series
// resistance measurement. RUN_BSR starts a fresh one.
func (d *Device) BatteryResistanceMicrohms() (uint32, error) {
	if d.cfg.RSnsBatUOhm == 0 {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "ltc4015.bsr", Msg: "battery sense resistor unset"}
	}
	if err := d.probe(); err != nil {
		return 0, err
	}
	raw, err := d.dev.ReadData("BSR")
	if err != nil {
		return 0, err
	}
	div := int64(500)
	if d.chem == ChemLeadAcid {
		div = 750
	}
	return uint32(int64(raw) * int64(d.cfg.RSnsBatUOhm) / div), nil
}

// Valid reports whether the telemetry filters have settled.
func (d *Device) Valid() (bool, error) {
	v, err := d.dev.ReadField("MEAS_SYS_VALID")
	if err != nil {
		return false, err
	}
	return v == uint64(1), nil
}

// EnsureValid forces the measurement system on and waits until the part
// flags its telemetry valid. Without input power or the force bit the
// telemetry block stays down and every readout is stale.
func (d *Device) EnsureValid() error {
	if err := d.dev.SetField("FORCE_MEAS_SYS_ON", 1); err != nil {
		return err
	}
	deadline := time.Now().Add(d.cfg.MeasTimeout)
	for {
		ok, err := d.Valid()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return &errcode.E{C: errcode.Timeout, Op: "ltc4015.valid"}
		}
		time.Sleep(d.cfg.PollInterval)
	}
}

// Suspend pauses or resumes the charge switcher. Telemetry keeps running.
func (d *Device) Suspend(on bool) error {
	v := uint64(0)
	if on {
		v = 1
	}
	return d.dev.SetField("SUSPEND_CHARGER", v)
}

// Charge returns the coulomb counter reading. Mid-scale 0x8000 is the
// usual empty-battery preset.
func (d *Device) Charge() (uint16, error) {
	v, err := d.dev.ReadData("QCOUNT")
	return uint16(v), err
}

// SetCharge presets the coulomb counter, normally after a full charge.
func (d *Device) SetCharge(v uint16) error {
	return d.dev.WriteData("QCOUNT", uint64(v))
}

// chargerStates decodes the one-hot CHARGER_STATE word, faults first.
var chargerStates = []struct {
	bit  uint
	name string
}{
	{10, "bat-short-fault"},
	{9, "bat-missing-fault"},
	{8, "max-charge-time-fault"},
	{7, "c-over-x-term"},
	{6, "timer-term"},
	{5, "ntc-pause"},
	{4, "cc-cv"},
	{3, "precharge"},
	{2, "suspended"},
	{1, "absorb"},
	{0, "equalize"},
}

// StateName names a CHARGER_STATE word.
func StateName(word uint64) string {
	for _, s := range chargerStates {
		if word&(1<<s.bit) != 0 {
			return s.name
		}
	}
	return "idle"
}

// State reads and names the charger state machine's current state.
func (d *Device) State() (string, error) {
	v, err := d.dev.ReadData("CHARGER_STATE")
	if err != nil {
		return "", err
	}
	return StateName(v), nil
}

// Labels names the Sample columns.
func (d *Device) Labels() []string { return d.labels }

// Sample reads every column behind a focus window, waking the telemetry
// system first if it reports stale.
func (d *Device) Sample() ([]int32, error) {
	if err := d.group.Focus(); err != nil {
		return nil, err
	}
	vals, err := d.sample()
	if uerr := d.group.Unfocus(); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, err
	}
	return vals, nil
}

func (d *Device) sample() ([]int32, error) {
	ok, err := d.Valid()
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := d.EnsureValid(); err != nil {
			return nil, err
		}
	}
	out := make([]int32, len(d.cols))
	for i, read := range d.cols {
		v, err := read()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Next samples once and returns the cycle's current column, rotating it.
func (d *Device) Next() (string, int32, error) {
	i, ok := d.cycle.Next()
	if !ok || i >= uint64(len(d.cols)) {
		i = 0
	}
	vals, err := d.Sample()
	if err != nil {
		return "", 0, err
	}
	return d.labels[i], vals[i], nil
}

func builder(in regmap.BuildInput) (regmap.Source, error) {
	cfg := Config{Group: in.Group, Cycle: in.Cycle}
	params := in.Params
	if len(params) > 0 {
		rest := make(map[string]uint64, len(params))
		for k, v := range params {
			rest[k] = v
		}
		if v, ok := rest[ParamRSnsBat]; ok {
			cfg.RSnsBatUOhm = uint32(v)
			delete(rest, ParamRSnsBat)
		}
		if v, ok := rest[ParamRSnsIn]; ok {
			cfg.RSnsInUOhm = uint32(v)
			delete(rest, ParamRSnsIn)
		}
		if v, ok := rest[ParamCells]; ok {
			cfg.Cells = uint8(v)
			delete(rest, ParamCells)
		}
		params = rest
	}
	d, err := New(in.Bus, in.Addr)
	if err != nil {
		return nil, err
	}
	d.Configure(cfg)
	for _, i := range in.Cycle {
		if i >= uint64(len(d.cols)) {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "ltc4015.build", Msg: "cycle index out of range"}
		}
	}
	if len(params) > 0 {
		if err := d.dev.Set(params); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Package lsm9ds1 drives the ST LSM9DS1 iNEMO module. The part is two dies
// on one package with separate bus addresses: the magnetometer and the
// accelerometer/gyroscope, registered here as two device types.
//
//	mag, _ := lsm9ds1.NewMag(bus, 0)
//	_ = mag.Regmap().Set(map[string]uint64{"MD": 0}) // continuous mode
//	ug, _ := mag.Output(lsm9ds1.AxisX)               // µgauss
//
//	imu, _ := lsm9ds1.NewAG(bus, 0)
//	vals, _ := imu.Sample() // GX GY GZ AX AY AZ TEMP
//
// Output registers are read low byte then high byte, per-register, and
// combined as 16-bit two's complement. Values are micro-units: µgauss,
// µdps, µg and µ°C.
package lsm9ds1

import (
	"tinygo.org/x/drivers"

	"regmap-go/errcode"
	"regmap-go/regmap"
	"regmap-go/x/bitx"
)

// Device type tags, one per die.
const (
	TypeMag = "lsm9ds1mag"
	TypeAG  = "lsm9ds1ag"
)

// Axis indexes for Output, Gyro and Accel.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

var opModes = []any{"LPow", "LP", "MP", "HP"}

func init() {
	regmap.Register(TypeMag, magMap())
	regmap.Register(TypeAG, agMap())
	regmap.RegisterBuilder(TypeMag, buildMag)
	regmap.RegisterBuilder(TypeAG, buildAG)
}

func magMap() regmap.Map {
	return regmap.Map{
		RegWidth: 1,
		Fields: map[string]regmap.Field{
			"TEMP_COMP": {Reg: 0x20, Start: 7, Width: 1, Info: "temperature compensation"},
			"OM":        {Reg: 0x20, Start: 5, Width: 2, Info: "X/Y operative mode", Decode: opModes},
			"ODR":       {Reg: 0x20, Start: 2, Width: 3, Info: "output data rate, Hz", Decode: []any{0.625, 1.25, 2.5, 5.0, 10.0, 20.0, 40.0, 80.0}},
			"FAST_ODR":  {Reg: 0x20, Start: 1, Width: 1},
			"ST":        {Reg: 0x20, Start: 0, Width: 1, Info: "self-test"},

			"FS":       {Reg: 0x21, Start: 5, Width: 2, Info: "full scale, gauss", Decode: []any{4.0, 8.0, 12.0, 16.0}},
			"REBOOT":   {Reg: 0x21, Start: 3, Width: 1},
			"SOFT_RST": {Reg: 0x21, Start: 2, Width: 1},

			"I2C_DISABLE": {Reg: 0x22, Start: 7, Width: 1},
			"LP":          {Reg: 0x22, Start: 5, Width: 1, Info: "low-power mode"},
			"SIM":         {Reg: 0x22, Start: 2, Width: 1, Info: "SPI mode", Decode: []any{"W", "RW"}},
			"MD":          {Reg: 0x22, Start: 0, Width: 2, Info: "operating mode", Decode: []any{"CONT", "SNGL", "POWD", "POWD"}},

			"OMZ": {Reg: 0x23, Start: 2, Width: 2, Info: "Z operative mode", Decode: opModes},
			"BLE": {Reg: 0x23, Start: 1, Width: 1, Info: "output byte order", Decode: []any{"LSb", "MSb"}},

			"BDU": {Reg: 0x24, Start: 6, Width: 1, Info: "block data update", Decode: []any{"CONT", "WAIT"}},

			"ZYXOR": {Reg: 0x27, Start: 7, Width: 1, Info: "X/Y/Z overrun"},
			"ZOR":   {Reg: 0x27, Start: 6, Width: 1},
			"YOR":   {Reg: 0x27, Start: 5, Width: 1},
			"XOR":   {Reg: 0x27, Start: 4, Width: 1},
			"ZYXDA": {Reg: 0x27, Start: 3, Width: 1, Info: "X/Y/Z data available"},
			"ZDA":   {Reg: 0x27, Start: 2, Width: 1},
			"YDA":   {Reg: 0x27, Start: 1, Width: 1},
			"XDA":   {Reg: 0x27, Start: 0, Width: 1},
		},
		Data: map[string]regmap.DataReg{
			"WHOAMI": {Reg: 0x0F, Width: 1},
			"XLO":    {Reg: 0x28, Width: 1},
			"XHI":    {Reg: 0x29, Width: 1},
			"YLO":    {Reg: 0x2A, Width: 1},
			"YHI":    {Reg: 0x2B, Width: 1},
			"ZLO":    {Reg: 0x2C, Width: 1},
			"ZHI":    {Reg: 0x2D, Width: 1},
		},
		Addrs:       []uint16{0x1C, 0x1E},
		DefaultAddr: 0x1E,
	}
}

func agMap() regmap.Map {
	return regmap.Map{
		RegWidth: 1,
		Fields: map[string]regmap.Field{
			"ODR_G": {Reg: 0x10, Start: 5, Width: 3, Info: "gyro data rate, Hz", Decode: []any{"PD", 14.9, 59.5, 119.0, 238.0, 476.0, 952.0, "NA"}},
			"FS_G":  {Reg: 0x10, Start: 3, Width: 2, Info: "gyro full scale, dps", Decode: []any{245.0, 500.0, "NA", 2000.0}},
			"BW_G":  {Reg: 0x10, Start: 0, Width: 2, Info: "gyro bandwidth select; cutoff depends on ODR"},

			"INT_SEL": {Reg: 0x11, Start: 2, Width: 2, Info: "interrupt generator input"},
			"OUT_SEL": {Reg: 0x11, Start: 0, Width: 2, Info: "output filter path"},

			"LP_G":   {Reg: 0x12, Start: 7, Width: 1, Info: "gyro low-power mode"},
			"HP_EN":  {Reg: 0x12, Start: 6, Width: 1, Info: "gyro high-pass filter"},
			"HPCF_G": {Reg: 0x12, Start: 0, Width: 4, Info: "high-pass cutoff select"},

			"ODR_XL":      {Reg: 0x20, Start: 5, Width: 3, Info: "accel data rate, Hz", Decode: []any{"PD", 10.0, 50.0, 119.0, 238.0, 476.0, 952.0, "NA"}},
			"FS_XL":       {Reg: 0x20, Start: 3, Width: 2, Info: "accel full scale, g", Decode: []any{2.0, 16.0, 4.0, 8.0}},
			"BW_SCAL_ODR": {Reg: 0x20, Start: 2, Width: 1, Info: "bandwidth from BW_XL instead of ODR"},
			"BW_XL":       {Reg: 0x20, Start: 0, Width: 2, Info: "accel anti-alias bandwidth, Hz", Decode: []any{408, 211, 105, 50}},

			"HR":    {Reg: 0x21, Start: 7, Width: 1, Info: "accel high resolution"},
			"DCF":   {Reg: 0x21, Start: 5, Width: 2, Info: "accel digital filter cutoff"},
			"FDS":   {Reg: 0x21, Start: 2, Width: 1, Info: "filtered data select"},
			"HPIS1": {Reg: 0x21, Start: 0, Width: 1, Info: "high-pass to interrupt"},

			"BOOT":       {Reg: 0x22, Start: 7, Width: 1},
			"BDU":        {Reg: 0x22, Start: 6, Width: 1, Info: "block data update", Decode: []any{"CONT", "WAIT"}},
			"H_LACTIVE":  {Reg: 0x22, Start: 5, Width: 1},
			"PP_OD":      {Reg: 0x22, Start: 4, Width: 1},
			"SIM":        {Reg: 0x22, Start: 3, Width: 1, Info: "SPI mode", Decode: []any{"W", "RW"}},
			"IF_ADD_INC": {Reg: 0x22, Start: 2, Width: 1, Info: "register auto-increment"},
			"BLE":        {Reg: 0x22, Start: 1, Width: 1, Info: "output byte order", Decode: []any{"LSb", "MSb"}},
			"SW_RESET":   {Reg: 0x22, Start: 0, Width: 1},

			"SLEEP_G":      {Reg: 0x23, Start: 6, Width: 1, Info: "gyro sleep"},
			"FIFO_TEMP_EN": {Reg: 0x23, Start: 4, Width: 1},
			"DRDY_MASK":    {Reg: 0x23, Start: 3, Width: 1},
			"I2C_DISABLE":  {Reg: 0x23, Start: 2, Width: 1},
			"FIFO_EN":      {Reg: 0x23, Start: 1, Width: 1},
			"STOP_ON_FTH":  {Reg: 0x23, Start: 0, Width: 1},

			"ST_G":  {Reg: 0x24, Start: 2, Width: 1, Info: "gyro self-test"},
			"ST_XL": {Reg: 0x24, Start: 0, Width: 1, Info: "accel self-test"},

			"IG_XL":       {Reg: 0x17, Start: 6, Width: 1, Info: "accel interrupt active"},
			"IG_G":        {Reg: 0x17, Start: 5, Width: 1, Info: "gyro interrupt active"},
			"INACT":       {Reg: 0x17, Start: 4, Width: 1},
			"BOOT_STATUS": {Reg: 0x17, Start: 3, Width: 1},
			"TDA":         {Reg: 0x17, Start: 2, Width: 1, Info: "temperature data available"},
			"GDA":         {Reg: 0x17, Start: 1, Width: 1, Info: "gyro data available"},
			"XLDA":        {Reg: 0x17, Start: 0, Width: 1, Info: "accel data available"},
		},
		Data: map[string]regmap.DataReg{
			"WHOAMI": {Reg: 0x0F, Width: 1},
			"TMP_LO": {Reg: 0x15, Width: 1},
			"TMP_HI": {Reg: 0x16, Width: 1},
			"XLO_G":  {Reg: 0x18, Width: 1},
			"XHI_G":  {Reg: 0x19, Width: 1},
			"YLO_G":  {Reg: 0x1A, Width: 1},
			"YHI_G":  {Reg: 0x1B, Width: 1},
			"ZLO_G":  {Reg: 0x1C, Width: 1},
			"ZHI_G":  {Reg: 0x1D, Width: 1},
			"XLO_XL": {Reg: 0x28, Width: 1},
			"XHI_XL": {Reg: 0x29, Width: 1},
			"YLO_XL": {Reg: 0x2A, Width: 1},
			"YHI_XL": {Reg: 0x2B, Width: 1},
			"ZLO_XL": {Reg: 0x2C, Width: 1},
			"ZHI_XL": {Reg: 0x2D, Width: 1},
		},
		Addrs:       []uint16{0x6A, 0x6B},
		DefaultAddr: 0x6B,
	}
}

// readPair combines an output register pair, low byte first, into a
// 16-bit two's-complement value.
func readPair(dev *regmap.Device, lo, hi string) (int64, error) {
	l, err := dev.ReadData(lo)
	if err != nil {
		return 0, err
	}
	h, err := dev.ReadData(hi)
	if err != nil {
		return 0, err
	}
	return bitx.Twos(h<<8|l, 16), nil
}

// scaleU resolves a full-scale field to micro-units per unit raw range.
// Codes that decode to a string (power-down, reserved) are rejected.
func scaleU(dev *regmap.Device, name string) (int64, error) {
	v, err := dev.GetField(name)
	if errcode.Of(err) == errcode.FieldUnread {
		v, err = dev.ReadField(name)
	}
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &errcode.E{C: errcode.Unsupported, Op: "lsm9ds1.scale", Msg: name}
	}
	return int64(f*1e6 + 0.5), nil
}

// -----------------------------------------------------------------------------
// Magnetometer
// -----------------------------------------------------------------------------

// MagConfig controls sampling. All fields are optional.
type MagConfig struct {
	// Group routes a channel switch around each measurement.
	Group *regmap.FocusGroup
	// Cycle holds axis indexes (0 X, 1 Y, 2 Z) for Next. Default all three.
	Cycle []uint64
}

// Mag wraps the magnetometer die.
type Mag struct {
	dev   *regmap.Device
	group *regmap.FocusGroup
	cycle *regmap.Cycler
}

// NewMag opens the magnetometer. addr 0 selects 0x1E.
func NewMag(bus drivers.I2C, addr uint16) (*Mag, error) {
	dev, err := regmap.New(TypeMag, bus, addr)
	if err != nil {
		return nil, err
	}
	m := &Mag{dev: dev}
	m.Configure()
	return m, nil
}

// Configure applies optional config and fills defaults.
func (m *Mag) Configure(cfgs ...MagConfig) {
	var c MagConfig
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if len(c.Cycle) == 0 {
		c.Cycle = []uint64{AxisX, AxisY, AxisZ}
	}
	m.group = c.Group
	m.cycle = regmap.NewCycler(c.Cycle...)
}

// Regmap exposes the underlying engine.
func (m *Mag) Regmap() *regmap.Device { return m.dev }

var (
	magLo     = [3]string{"XLO", "YLO", "ZLO"}
	magHi     = [3]string{"XHI", "YHI", "ZHI"}
	magLabels = []string{"MX", "MY", "MZ"}
)

// Output reads one axis and returns µgauss at the current full scale.
func (m *Mag) Output(axis int) (int32, error) {
	if axis < AxisX || axis > AxisZ {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "lsm9ds1.output", Msg: "axis out of range"}
	}
	fs, err := scaleU(m.dev, "FS")
	if err != nil {
		return 0, err
	}
	raw, err := readPair(m.dev, magLo[axis], magHi[axis])
	if err != nil {
		return 0, err
	}
	return int32(fs * raw / 32768), nil
}

// Labels names the Sample columns.
func (m *Mag) Labels() []string { return magLabels }

// Sample reads all three axes behind one focus window, µgauss each.
func (m *Mag) Sample() ([]int32, error) {
	if err := m.group.Focus(); err != nil {
		return nil, err
	}
	out := make([]int32, 0, 3)
	var err error
	for axis := AxisX; axis <= AxisZ; axis++ {
		var v int32
		if v, err = m.Output(axis); err != nil {
			break
		}
		out = append(out, v)
	}
	if uerr := m.group.Unfocus(); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Next measures the cycle's current axis and rotates it.
func (m *Mag) Next() (string, int32, error) {
	a, ok := m.cycle.Next()
	if !ok || a > AxisZ {
		a = AxisX
	}
	if err := m.group.Focus(); err != nil {
		return "", 0, err
	}
	v, err := m.Output(int(a))
	if uerr := m.group.Unfocus(); err == nil {
		err = uerr
	}
	if err != nil {
		return "", 0, err
	}
	return magLabels[a], v, nil
}

func buildMag(in regmap.BuildInput) (regmap.Source, error) {
	for _, a := range in.Cycle {
		if a > AxisZ {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "lsm9ds1.build", Msg: "axis out of range"}
		}
	}
	m, err := NewMag(in.Bus, in.Addr)
	if err != nil {
		return nil, err
	}
	m.Configure(MagConfig{Cycle: in.Cycle, Group: in.Group})
	if len(in.Params) > 0 {
		if err := m.dev.Set(in.Params); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// -----------------------------------------------------------------------------
// Accelerometer / gyroscope
// -----------------------------------------------------------------------------

// AGConfig controls sampling. All fields are optional.
type AGConfig struct {
	// Group routes a channel switch around each measurement.
	Group *regmap.FocusGroup
	// Cycle holds column indexes into Labels for Next. Default all seven.
	Cycle []uint64
}

// AG wraps the accelerometer/gyroscope die.
type AG struct {
	dev   *regmap.Device
	group *regmap.FocusGroup
	cycle *regmap.Cycler
}

// NewAG opens the accelerometer/gyroscope. addr 0 selects 0x6B.
func NewAG(bus drivers.I2C, addr uint16) (*AG, error) {
	dev, err := regmap.New(TypeAG, bus, addr)
	if err != nil {
		return nil, err
	}
	a := &AG{dev: dev}
	a.Configure()
	return a, nil
}

// Configure applies optional config and fills defaults.
func (a *AG) Configure(cfgs ...AGConfig) {
	var c AGConfig
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if len(c.Cycle) == 0 {
		c.Cycle = []uint64{0, 1, 2, 3, 4, 5, 6}
	}
	a.group = c.Group
	a.cycle = regmap.NewCycler(c.Cycle...)
}

// Regmap exposes the underlying engine.
func (a *AG) Regmap() *regmap.Device { return a.dev }

var (
	gyrLo    = [3]string{"XLO_G", "YLO_G", "ZLO_G"}
	gyrHi    = [3]string{"XHI_G", "YHI_G", "ZHI_G"}
	accLo    = [3]string{"XLO_XL", "YLO_XL", "ZLO_XL"}
	accHi    = [3]string{"XHI_XL", "YHI_XL", "ZHI_XL"}
	agLabels = []string{"GX", "GY", "GZ", "AX", "AY", "AZ", "TEMP"}
)

// Gyro reads one gyroscope axis and returns µdps at the current full scale.
func (a *AG) Gyro(axis int) (int32, error) {
	if axis < AxisX || axis > AxisZ {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "lsm9ds1.gyro", Msg: "axis out of range"}
	}
	fs, err := scaleU(a.dev, "FS_G")
	if err != nil {
		return 0, err
	}
	raw, err := readPair(a.dev, gyrLo[axis], gyrHi[axis])
	if err != nil {
		return 0, err
	}
	return int32(fs * raw / 32768), nil
}

// Accel reads one accelerometer axis and returns µg at the current
// full scale.
func (a *AG) Accel(axis int) (int32, error) {
	if axis < AxisX || axis > AxisZ {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "lsm9ds1.accel", Msg: "axis out of range"}
	}
	fs, err := scaleU(a.dev, "FS_XL")
	if err != nil {
		return 0, err
	}
	raw, err := readPair(a.dev, accLo[axis], accHi[axis])
	if err != nil {
		return 0, err
	}
	return int32(fs * raw / 32768), nil
}

// Temp reads the die temperature and returns µ°C. The sensor counts
// 16 LSB per °C from 25 °C.
func (a *AG) Temp() (int32, error) {
	raw, err := readPair(a.dev, "TMP_LO", "TMP_HI")
	if err != nil {
		return 0, err
	}
	return int32(25_000_000 + raw*62_500), nil
}

// Labels names the Sample columns: gyro axes, accel axes, temperature.
func (a *AG) Labels() []string { return agLabels }

func (a *AG) column(i int) (int32, error) {
	switch {
	case i < 3:
		return a.Gyro(i)
	case i < 6:
		return a.Accel(i - 3)
	default:
		return a.Temp()
	}
}

// Sample reads every column behind one focus window.
func (a *AG) Sample() ([]int32, error) {
	if err := a.group.Focus(); err != nil {
		return nil, err
	}
	out := make([]int32, 0, len(agLabels))
	var err error
	for i := range agLabels {
		var v int32
		if v, err = a.column(i); err != nil {
			break
		}
		out = append(out, v)
	}
	if uerr := a.group.Unfocus(); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Next measures the cycle's current column and rotates it.
func (a *AG) Next() (string, int32, error) {
	i, ok := a.cycle.Next()
	if !ok || int(i) >= len(agLabels) {
		i = 0
	}
	if err := a.group.Focus(); err != nil {
		return "", 0, err
	}
	v, err := a.column(int(i))
	if uerr := a.group.Unfocus(); err == nil {
		err = uerr
	}
	if err != nil {
		return "", 0, err
	}
	return agLabels[i], v, nil
}

func buildAG(in regmap.BuildInput) (regmap.Source, error) {
	for _, i := range in.Cycle {
		if int(i) >= len(agLabels) {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "lsm9ds1.build", Msg: "column index out of range"}
		}
	}
	a, err := NewAG(in.Bus, in.Addr)
	if err != nil {
		return nil, err
	}
	a.Configure(AGConfig{Cycle: in.Cycle, Group: in.Group})
	if len(in.Params) > 0 {
		if err := a.dev.Set(in.Params); err != nil {
			return nil, err
		}
	}
	return a, nil
}

package ltc4015

import (
	"bytes"
	"testing"

	"regmap-go/errcode"
	"regmap-go/platform"
	"regmap-go/regmap"
)

// chargerSim preloads the telemetry block of a 4-cell LiFePO4 pack in
// little-endian wire order: 3.268 V/cell, 18.1 V in, charging at ~1.1 A.
func chargerSim() *platform.SimI2C {
	le := func(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
	return &platform.SimI2C{Regs: map[uint8][]byte{
		0x3A: le(17000),  // VBAT
		0x3B: le(11000),  // VIN
		0x3C: le(10000),  // VSYS
		0x3D: le(3000),   // IBAT
		0x3E: le(0xFC18), // IIN, -1000
		0x3F: le(13833),  // DIE_TEMP
		0x43: le(0x0504), // CHEM_CELLS: lifepo4-fast, 4 cells
		0x4A: le(0x0001), // MEAS_SYS_VALID
	}}
}

func TestTelemetryScaling(t *testing.T) {
	sim := chargerSim()
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Regmap().Addr() != 0x68 {
		t.Fatalf("address: %#x", d.Regmap().Addr())
	}
	d.Configure(Config{RSnsBatUOhm: 4000, RSnsInUOhm: 3000})

	want := []string{"VBAT", "IBAT", "VIN", "IIN", "VSYS", "DIETEMP"}
	got := d.Labels()
	if len(got) != len(want) {
		t.Fatalf("labels: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("labels: %v", got)
		}
	}

	vals, err := d.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	// 17000*192264/1000 per cell, four cells; currents across 4 and 3 mOhm.
	expect := []int32{13_073_952, 1_098_652, 18_128_000, -488_290, 16_480_000, 39_978_070}
	for i, want := range expect {
		if vals[i] != want {
			t.Fatalf("column %s: got %d, want %d", got[i], vals[i], want)
		}
	}

	if chem, _ := d.Chem(); chem != ChemLithium {
		t.Fatalf("chemistry: %v", chem)
	}
	if cells, _ := d.Cells(); cells != 4 {
		t.Fatalf("cells: %d", cells)
	}
}

func TestLeadAcidScaling(t *testing.T) {
	sim := chargerSim()
	sim.Regs[0x43] = []byte{0x06, 0x07} // lead-acid-fixed, 6 cells
	d, _ := New(sim, 0)

	uv, err := d.BatteryCellMicrovolts()
	if err != nil {
		t.Fatalf("cell voltage: %v", err)
	}
	if uv != 17000*128176/1000 {
		t.Fatalf("lead-acid cell: %d", uv)
	}
	pack, _ := d.BatteryMicrovolts()
	if pack != uv*6 {
		t.Fatalf("pack: %d", pack)
	}
}

func TestSampleWakesStaleTelemetry(t *testing.T) {
	sim := chargerSim()
	sim.Regs[0x4A] = []byte{0x00, 0x00}
	// Setting FORCE_MEAS_SYS_ON brings the measurement system up.
	sim.OnTx = func(w, r []byte) (bool, error) {
		if len(w) == 3 && w[0] == 0x14 && w[1]&0x10 != 0 {
			sim.Regs[0x4A] = []byte{0x01, 0x00}
		}
		return false, nil
	}
	d, _ := New(sim, 0)
	d.Configure(Config{RSnsBatUOhm: 4000, RSnsInUOhm: 3000})

	if _, err := d.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	writes := sim.Writes(0x14)
	if len(writes) != 1 || !bytes.Equal(writes[0], []byte{0x10, 0x00}) {
		t.Fatalf("config writes: %v", writes)
	}
}

func TestConfigWireOrder(t *testing.T) {
	sim := &platform.SimI2C{Regs: map[uint8][]byte{
		0x14: {0x00, 0x01}, // SUSPEND_CHARGER already set
	}}
	d, _ := New(sim, 0)

	if err := d.Regmap().SetField("EN_QCOUNT", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// The read-modify-write must keep bit 8 and emit low byte first.
	writes := sim.Writes(0x14)
	if len(writes) != 1 || !bytes.Equal(writes[0], []byte{0x04, 0x01}) {
		t.Fatalf("wire bytes: %v", writes)
	}
	got, err := d.Regmap().ReadField("SUSPEND_CHARGER")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != uint64(1) {
		t.Fatalf("suspend bit: %v", got)
	}
}

func TestCurrentNeedsSenseResistor(t *testing.T) {
	d, _ := New(chargerSim(), 0)
	if _, err := d.BatteryMicroamps(); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("unset sense resistor: %v", err)
	}
	// Voltages never depend on the sense resistors.
	if _, err := d.BatteryMicrovolts(); err != nil {
		t.Fatalf("voltage: %v", err)
	}
}

func TestStateNames(t *testing.T) {
	cases := []struct {
		word uint64
		want string
	}{
		{0, "idle"},
		{1 << 4, "cc-cv"},
		{1 << 2, "suspended"},
		{1<<9 | 1<<0, "bat-missing-fault"},
	}
	for _, c := range cases {
		if got := StateName(c.word); got != c.want {
			t.Fatalf("StateName(%#x): got %q, want %q", c.word, got, c.want)
		}
	}
}

func TestBuilderParams(t *testing.T) {
	build, ok := regmap.LookupBuilder(Type)
	if !ok {
		t.Fatal("no builder registered")
	}
	sim := chargerSim()
	params := map[string]uint64{ParamRSnsBat: 4000, "EN_QCOUNT": 1}
	src, err := build(regmap.BuildInput{Bus: sim, Params: params})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Driver param consumed, field param written, caller's map untouched.
	if len(params) != 2 {
		t.Fatalf("params mutated: %v", params)
	}
	writes := sim.Writes(0x14)
	if len(writes) != 1 || !bytes.Equal(writes[0], []byte{0x04, 0x00}) {
		t.Fatalf("config writes: %v", writes)
	}
	labels := src.Labels()
	if len(labels) != 5 || labels[1] != "IBAT" {
		t.Fatalf("labels: %v", labels)
	}
}

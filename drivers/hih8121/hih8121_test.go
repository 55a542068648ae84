package hih8121

import (
	"testing"
	"time"

	"regmap-go/errcode"
	"regmap-go/platform"
	"regmap-go/regmap"
)

// measSim serves the 4-byte measurement word: staleReads stale answers
// after each trigger, then fresh data. Half-span counts in both channels:
// 50 %RH and 42.5 °C.
func measSim(staleReads int) *platform.SimI2C {
	sim := &platform.SimI2C{}
	stale := staleReads
	sim.OnTx = func(w, r []byte) (bool, error) {
		switch {
		case len(w) == 1 && w[0] == 0 && len(r) == 0: // trigger
			stale = staleReads
			return true, nil
		case len(w) == 1 && w[0] == 0 && len(r) == 4:
			word := uint32(8191)<<16 | uint32(8191)<<2
			if stale > 0 {
				stale--
				word |= 1 << 30
			}
			r[0], r[1], r[2], r[3] = byte(word>>24), byte(word>>16), byte(word>>8), byte(word)
			return true, nil
		}
		return false, nil
	}
	return sim
}

func fastCfg() Config {
	return Config{PollInterval: time.Millisecond, MeasTimeout: 50 * time.Millisecond}
}

func TestReadPollsUntilFresh(t *testing.T) {
	sim := measSim(1)
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Regmap().Addr() != 0x27 {
		t.Fatalf("address: %#x", d.Regmap().Addr())
	}
	d.Configure(fastCfg())

	hum, temp, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if hum != 50_000_000 {
		t.Fatalf("humidity: got %d, want 50000000", hum)
	}
	if temp != 42_500_000 {
		t.Fatalf("temperature: got %d, want 42500000", temp)
	}
	// First transaction is the bare trigger write, then two data reads
	// (one stale, one fresh).
	if len(sim.Log) != 3 || sim.Log[0].RN != 0 || len(sim.Log[0].W) != 1 {
		t.Fatalf("transaction trace: %v", sim.Log)
	}
}

func TestCollectStatuses(t *testing.T) {
	sim := &platform.SimI2C{Regs: map[uint8][]byte{
		0x00: {0x40, 0x00, 0x00, 0x00}, // stale flag
	}}
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := d.Collect(); err != ErrNotReady {
		t.Fatalf("stale: %v", err)
	}
	sim.Regs[0x00] = []byte{0x80, 0x00, 0x00, 0x00} // command mode
	if _, _, err := d.Collect(); err != ErrProtocol {
		t.Fatalf("command mode: %v", err)
	}
}

func TestReadTimeout(t *testing.T) {
	sim := measSim(1 << 20)
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.Configure(Config{PollInterval: time.Millisecond, MeasTimeout: 5 * time.Millisecond})
	if _, _, err := d.Read(); errcode.Of(err) != errcode.Timeout {
		t.Fatalf("endless stale data: %v", err)
	}
}

type fakeSel struct {
	state    []bool
	writes   int
	disables []int
}

func (f *fakeSel) Channels() ([]bool, error) { return append([]bool(nil), f.state...), nil }
func (f *fakeSel) SetChannels(on []bool) error {
	f.writes++
	f.state = append([]bool(nil), on...)
	return nil
}
func (f *fakeSel) Disable(ch int) error {
	f.disables = append(f.disables, ch)
	f.state[ch] = false
	return nil
}

func TestSampleAndNext(t *testing.T) {
	sim := measSim(0)
	d, err := New(sim, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sel := &fakeSel{state: make([]bool, 4)}
	cfg := fastCfg()
	cfg.Group = &regmap.FocusGroup{Mine: 3, Siblings: []int{2}, Switch: sel}
	d.Configure(cfg)

	vals, err := d.Sample()
	if err != nil || len(vals) != 2 {
		t.Fatalf("Sample: %v, %v", vals, err)
	}
	if vals[0] != 50_000_000 || vals[1] != 42_500_000 {
		t.Fatalf("Sample values: %v", vals)
	}
	if got := d.Labels(); got[0] != "RH" || got[1] != "TEMP" {
		t.Fatalf("Labels: %v", got)
	}
	if sel.writes != 1 || len(sel.disables) != 1 || sel.disables[0] != 3 {
		t.Fatalf("switch traffic: %d writes, disables %v", sel.writes, sel.disables)
	}

	for i, want := range []string{"RH", "TEMP", "RH"} {
		label, v, err := d.Next()
		if err != nil || label != want {
			t.Fatalf("Next #%d: %q, %v", i, label, err)
		}
		if want == "RH" && v != 50_000_000 || want == "TEMP" && v != 42_500_000 {
			t.Fatalf("Next #%d value: %d", i, v)
		}
	}
}

func TestBuilder(t *testing.T) {
	build, ok := regmap.LookupBuilder(Type8121)
	if !ok {
		t.Fatal("no builder registered")
	}
	sim := measSim(0)
	src, err := build(regmap.BuildInput{Bus: sim})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := src.Labels(); len(got) != 2 {
		t.Fatalf("Labels: %v", got)
	}

	if _, err := build(regmap.BuildInput{Bus: sim, Cycle: []uint64{2}}); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("bad cycle index: %v", err)
	}
	// The part has no configuration fields, so any initial params are
	// rejected by the engine before any bus traffic.
	if _, err := build(regmap.BuildInput{Bus: sim, Params: map[string]uint64{"MODE": 1}}); errcode.Of(err) != errcode.UnknownField {
		t.Fatalf("params on a fieldless part: %v", err)
	}
}

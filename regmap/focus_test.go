package regmap

import "testing"

type fakeSwitch struct {
	state    []bool
	reads    int
	writes   int
	disables []int
}

func (f *fakeSwitch) Channels() ([]bool, error) {
	f.reads++
	return append([]bool(nil), f.state...), nil
}

func (f *fakeSwitch) SetChannels(on []bool) error {
	f.writes++
	f.state = append([]bool(nil), on...)
	return nil
}

func (f *fakeSwitch) Disable(ch int) error {
	f.disables = append(f.disables, ch)
	f.state[ch] = false
	return nil
}

func TestFocusRoutesGroupOnly(t *testing.T) {
	// Channels 1, 3 and 6 start enabled; 6 belongs to somebody else.
	sw := &fakeSwitch{state: []bool{false, true, false, true, false, false, true, false}}
	g := &FocusGroup{Mine: 2, Siblings: []int{1, 3}, Switch: sw}

	if err := g.Focus(); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	want := []bool{false, false, true, false, false, false, true, false}
	for i := range want {
		if sw.state[i] != want[i] {
			t.Fatalf("state after Focus: %v, want %v", sw.state, want)
		}
	}
	if sw.reads != 1 || sw.writes != 1 {
		t.Fatalf("switch traffic: %d reads, %d writes", sw.reads, sw.writes)
	}

	if err := g.Unfocus(); err != nil {
		t.Fatalf("Unfocus: %v", err)
	}
	if len(sw.disables) != 1 || sw.disables[0] != 2 {
		t.Fatalf("Unfocus disables: %v", sw.disables)
	}
	if !sw.state[6] {
		t.Fatal("Unfocus disturbed a channel outside the group")
	}
	if sw.writes != 1 {
		t.Fatal("Unfocus rewrote the whole switch")
	}
}

func TestFocusNilGroup(t *testing.T) {
	var g *FocusGroup
	if err := g.Focus(); err != nil {
		t.Fatalf("nil Focus: %v", err)
	}
	if err := g.Unfocus(); err != nil {
		t.Fatalf("nil Unfocus: %v", err)
	}
	g = &FocusGroup{Mine: 0} // no switch wired
	if err := g.Focus(); err != nil {
		t.Fatalf("switchless Focus: %v", err)
	}
}

package regmap

// Selector is a downstream channel switch (e.g. a TCA95xx mux) seen from
// the device side of a FocusGroup.
type Selector interface {
	// Channels returns the current enable state, one entry per channel.
	Channels() ([]bool, error)
	// SetChannels writes a full enable state in one transaction.
	SetChannels(on []bool) error
	// Disable clears a single channel, leaving the others alone.
	Disable(ch int) error
}

// FocusGroup describes where a device sits behind a Selector and which
// sibling channels share its bus address. Focus opens the device's channel
// and closes the siblings; channels outside the group are left untouched,
// so unrelated devices stay reachable.
//
// A nil FocusGroup is valid and does nothing, for devices wired directly
// to the bus.
type FocusGroup struct {
	Mine     int
	Siblings []int
	Switch   Selector
}

// Focus routes the bus to this device: siblings off, own channel on,
// everything else preserved. One read and one write on the switch.
func (g *FocusGroup) Focus() error {
	if g == nil || g.Switch == nil {
		return nil
	}
	st, err := g.Switch.Channels()
	if err != nil {
		return err
	}
	for _, ch := range g.Siblings {
		if ch >= 0 && ch < len(st) {
			st[ch] = false
		}
	}
	if g.Mine >= 0 && g.Mine < len(st) {
		st[g.Mine] = true
	}
	return g.Switch.SetChannels(st)
}

// Unfocus closes only this device's channel. Siblings stay as Focus left
// them; the next Focus in the group reshuffles anyway.
func (g *FocusGroup) Unfocus() error {
	if g == nil || g.Switch == nil {
		return nil
	}
	return g.Switch.Disable(g.Mine)
}

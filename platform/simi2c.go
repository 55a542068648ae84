//go:build !rp2040 && !rp2350

package platform

import "errors"

// ErrSimFail is returned by SimI2C for an injected failure.
var ErrSimFail = errors.New("platform: simulated bus failure")

// SimTx records one bus transaction seen by SimI2C.
type SimTx struct {
	Addr uint16
	W    []byte // copy of the written bytes
	RN   int    // requested read length
}

// SimI2C emulates a single register-mapped part for host tests. The default
// behaviour covers the common wire patterns:
//
//	w=[reg], r=n    register read: serve Regs[reg], zero-filled
//	w=[reg, d...]   register write: store d as Regs[reg]
//	w=[b], r=0      bare control byte: remember it in Ctrl; when the part
//	                has no register file it also becomes the port state,
//	                like a channel switch
//	w=nil, r>0      pointer-less read: serve Port
//
// OnTx, when set, runs first and may fully handle a transaction (dynamic
// parts: busy bits, conversion delays). FailAt fails the nth transaction,
// counted from 1, with ErrSimFail. Every transaction lands in Log either way.
type SimI2C struct {
	Regs map[uint8][]byte
	Port []byte
	Ctrl byte // last bare control byte

	OnTx   func(w, r []byte) (handled bool, err error)
	FailAt int
	Log    []SimTx

	n int
}

// Tx implements drivers.I2C.
func (s *SimI2C) Tx(addr uint16, w, r []byte) error {
	s.n++
	s.Log = append(s.Log, SimTx{Addr: addr, W: append([]byte(nil), w...), RN: len(r)})
	if s.FailAt > 0 && s.n == s.FailAt {
		return ErrSimFail
	}
	if s.OnTx != nil {
		if handled, err := s.OnTx(w, r); handled || err != nil {
			return err
		}
	}
	switch {
	case len(w) == 0 && len(r) > 0:
		zero(r)
		copy(r, s.Port)
	case len(w) == 1 && len(r) > 0:
		zero(r)
		copy(r, s.Regs[w[0]])
	case len(w) == 1:
		s.Ctrl = w[0]
		if s.Regs == nil {
			s.Port = []byte{w[0]}
		}
	case len(w) > 1:
		if s.Regs == nil {
			s.Regs = make(map[uint8][]byte)
		}
		s.Regs[w[0]] = append([]byte(nil), w[1:]...)
	}
	return nil
}

// Writes returns the data blocks of every register write to reg, in order.
func (s *SimI2C) Writes(reg uint8) [][]byte {
	var out [][]byte
	for _, t := range s.Log {
		if t.RN == 0 && len(t.W) > 1 && t.W[0] == reg {
			out = append(out, t.W[1:])
		}
	}
	return out
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

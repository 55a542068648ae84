// Package regmap drives register-mapped I2C devices from data instead of
// per-part code. A driver package describes its part once as a Map and
// registers it under a type tag (usually from init); Device then serves
// every field read and write generically:
//
//	dev, _ := regmap.New("ads1115", bus, 0x48)
//	err := dev.Set(map[string]uint64{"MODE": 1})
//	got, err := dev.Read("DR") // forced bus read
//	got, err = dev.Get("DR")   // cache only, no bus traffic
//
// Raw field codes are cached per name on every read. Get serves from that
// cache and fails with errcode.FieldUnread for a field that was never read.
// Set validates every value before the first bus transaction, then performs
// one read-modify-write per touched register and finally updates the cache
// with the values as written. A part that masks or latches written bits
// will diverge from the cache until the field is re-read.
//
// A Device is not safe for concurrent use; see platform.SharedI2C for
// sharing one bus between goroutines.
package regmap

import (
	"sort"

	"tinygo.org/x/drivers"

	"regmap-go/errcode"
	"regmap-go/x/bitx"
)

// Device binds a register map to one part on one bus. The bus and address
// are fixed at construction.
type Device struct {
	typ   string
	m     Map
	tr    Transport
	cache map[string]uint64 // raw field codes by name
	rbuf  [8]byte
}

// New creates a Device for a registered device type. addr 0 selects the
// map's default address; any other address must be in the map's list.
func New(deviceType string, bus drivers.I2C, addr uint16) (*Device, error) {
	m, ok := Lookup(deviceType)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownDevice, Op: "regmap.new", Msg: deviceType}
	}
	if addr == 0 {
		addr = m.DefaultAddr
	} else if !m.HasAddr(addr) {
		return nil, &errcode.E{C: errcode.BadAddress, Op: "regmap.new", Msg: deviceType}
	}
	return &Device{
		typ:   deviceType,
		m:     m,
		tr:    NewTransport(bus, addr),
		cache: make(map[string]uint64),
	}, nil
}

// Type returns the device type tag.
func (d *Device) Type() string { return d.typ }

// Addr returns the bus address the device was bound to.
func (d *Device) Addr() uint16 { return d.tr.Addr() }

// Map returns the register description. Treat it as read-only.
func (d *Device) Map() Map { return d.m }

// Transport exposes the wire layer for drivers that need operations the
// field model cannot express (bare triggers, control-byte writes).
func (d *Device) Transport() *Transport { return &d.tr }

// fieldList expands an empty name list to every field and rejects unknown
// names before any bus traffic.
func (d *Device) fieldList(op string, names []string) ([]string, error) {
	if len(names) == 0 {
		return d.m.FieldNames(), nil
	}
	for _, n := range names {
		if _, ok := d.m.Fields[n]; !ok {
			return nil, &errcode.E{C: errcode.UnknownField, Op: op, Msg: n}
		}
	}
	return names, nil
}

func (d *Device) decode(name string, code uint64) any {
	f := d.m.Fields[name]
	if f.Decode == nil {
		return code
	}
	return f.Decode[code]
}

// Get returns decoded values for the named fields from the cache without
// touching the bus. With no names it returns every field. A field that has
// never been read or written fails with errcode.FieldUnread.
func (d *Device) Get(names ...string) (map[string]any, error) {
	list, err := d.fieldList("regmap.get", names)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(list))
	for _, n := range list {
		code, ok := d.cache[n]
		if !ok {
			return nil, &errcode.E{C: errcode.FieldUnread, Op: "regmap.get", Msg: n}
		}
		out[n] = d.decode(n, code)
	}
	return out, nil
}

// Read fetches the named fields from the device, one bus read per distinct
// register in ascending address order, refreshing the cache for exactly the
// named fields. With no names it reads every field.
func (d *Device) Read(names ...string) (map[string]any, error) {
	list, err := d.fieldList("regmap.read", names)
	if err != nil {
		return nil, err
	}
	regs := d.regsOf(list)
	vals := make(map[uint8]uint64, len(regs))
	for _, reg := range regs {
		v, err := d.readReg(reg)
		if err != nil {
			return nil, err
		}
		vals[reg] = v
	}
	out := make(map[string]any, len(list))
	for _, n := range list {
		f := d.m.Fields[n]
		code := bitx.Extract(vals[f.Reg], uint(f.Start), uint(f.Width))
		d.cache[n] = code
		out[n] = d.decode(n, code)
	}
	return out, nil
}

// Set writes raw field codes. Every entry is validated before the first bus
// transaction, so a bad request leaves the device untouched. Writes are one
// read-modify-write per distinct register in ascending address order; sibling
// fields in a touched register are preserved. The cache is updated only after
// every register write has succeeded.
func (d *Device) Set(vals map[string]uint64) error {
	if len(vals) == 0 {
		return nil
	}
	names := make([]string, 0, len(vals))
	for n, v := range vals {
		f, ok := d.m.Fields[n]
		if !ok {
			return &errcode.E{C: errcode.UnknownField, Op: "regmap.set", Msg: n}
		}
		if f.Width < 64 && v > 1<<f.Width-1 {
			return &errcode.E{C: errcode.ValueRange, Op: "regmap.set", Msg: n}
		}
		names = append(names, n)
	}
	for _, reg := range d.regsOf(names) {
		cur, err := d.readReg(reg)
		if err != nil {
			return err
		}
		for n, v := range vals {
			f := d.m.Fields[n]
			if f.Reg != reg {
				continue
			}
			cur, err = bitx.Set(cur, uint(f.Start), uint(f.Width), v)
			if err != nil {
				return &errcode.E{C: errcode.ValueRange, Op: "regmap.set", Msg: n, Err: err}
			}
		}
		if err := d.writeReg(reg, cur); err != nil {
			return err
		}
	}
	for n, v := range vals {
		d.cache[n] = v
	}
	return nil
}

// GetField is Get for a single field.
func (d *Device) GetField(name string) (any, error) {
	got, err := d.Get(name)
	if err != nil {
		return nil, err
	}
	return got[name], nil
}

// ReadField is Read for a single field.
func (d *Device) ReadField(name string) (any, error) {
	got, err := d.Read(name)
	if err != nil {
		return nil, err
	}
	return got[name], nil
}

// SetField is Set for a single field.
func (d *Device) SetField(name string, v uint64) error {
	return d.Set(map[string]uint64{name: v})
}

// dataReg resolves a data register name. An empty name is accepted only
// when the map has exactly one data register.
func (d *Device) dataReg(op, name string) (DataReg, error) {
	if name == "" {
		switch len(d.m.Data) {
		case 1:
			for _, r := range d.m.Data {
				return r, nil
			}
		case 0:
			return DataReg{}, &errcode.E{C: errcode.UnknownDataReg, Op: op, Msg: "no data registers"}
		}
		return DataReg{}, &errcode.E{C: errcode.AmbiguousDataReg, Op: op}
	}
	r, ok := d.m.Data[name]
	if !ok {
		return DataReg{}, &errcode.E{C: errcode.UnknownDataReg, Op: op, Msg: name}
	}
	return r, nil
}

// ReadData reads a measurement register whole and returns it as an
// unsigned value assembled in the map's byte order.
func (d *Device) ReadData(name string) (uint64, error) {
	r, err := d.dataReg("regmap.read_data", name)
	if err != nil {
		return 0, err
	}
	buf := d.rbuf[:r.Width]
	if err := d.tr.ReadReg(r.Reg, buf); err != nil {
		return 0, err
	}
	return d.fromWire(buf), nil
}

// WriteData writes a measurement register whole. A value wider than the
// register fails with errcode.ValueRange before any bus traffic.
func (d *Device) WriteData(name string, v uint64) error {
	r, err := d.dataReg("regmap.write_data", name)
	if err != nil {
		return err
	}
	buf := d.rbuf[:r.Width]
	if err := d.toWire(buf, v); err != nil {
		return &errcode.E{C: errcode.ValueRange, Op: "regmap.write_data", Msg: name, Err: err}
	}
	return d.tr.WriteReg(r.Reg, buf)
}

// regsOf returns the distinct registers behind the named fields in
// ascending address order.
func (d *Device) regsOf(names []string) []uint8 {
	seen := make(map[uint8]bool, len(names))
	regs := make([]uint8, 0, len(names))
	for _, n := range names {
		reg := d.m.Fields[n].Reg
		if !seen[reg] {
			seen[reg] = true
			regs = append(regs, reg)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	return regs
}

func (d *Device) readReg(reg uint8) (uint64, error) {
	buf := d.rbuf[:d.m.RegWidth]
	if err := d.tr.ReadReg(reg, buf); err != nil {
		return 0, err
	}
	return d.fromWire(buf), nil
}

func (d *Device) writeReg(reg uint8, v uint64) error {
	buf := d.rbuf[:d.m.RegWidth]
	if err := d.toWire(buf, v); err != nil {
		return &errcode.E{C: errcode.ValueRange, Op: "regmap.set", Err: err}
	}
	return d.tr.WriteReg(reg, buf)
}

// fromWire and toWire convert between wire bytes and logical values,
// honouring the map's byte order. Both may reorder buf in place.
func (d *Device) fromWire(buf []byte) uint64 {
	if d.m.LSBFirst {
		reverse(buf)
	}
	return bitx.FromBytes(buf)
}

func (d *Device) toWire(buf []byte, v uint64) error {
	if err := bitx.PutBytes(buf, v); err != nil {
		return err
	}
	if d.m.LSBFirst {
		reverse(buf)
	}
	return nil
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

package regmap

import (
	"tinygo.org/x/drivers"

	"regmap-go/errcode"
)

// Transport is the wire layer for one device address on one I2C bus.
// It owns a small scratch buffer so register writes do not allocate.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when
// both w and r are provided, without releasing the bus.
type Transport struct {
	bus  drivers.I2C
	addr uint16
	wbuf [12]byte
}

// NewTransport binds a bus and a device address.
func NewTransport(bus drivers.I2C, addr uint16) Transport {
	return Transport{bus: bus, addr: addr}
}

// Addr returns the bound device address.
func (t *Transport) Addr() uint16 { return t.addr }

func (t *Transport) tx(w, r []byte) error {
	if err := t.bus.Tx(t.addr, w, r); err != nil {
		return &errcode.E{C: errcode.BusIO, Op: "i2c.tx", Err: err}
	}
	return nil
}

// WriteEmpty addresses the device and sends a single zero byte. Some parts
// use the bare transaction itself as a trigger (e.g. a measurement request).
func (t *Transport) WriteEmpty() error {
	t.wbuf[0] = 0
	return t.tx(t.wbuf[:1], nil)
}

// WriteByte sends one byte with no register address. This is also how a
// bare control byte goes out; the wire operation is identical.
func (t *Transport) WriteByte(b byte) error {
	t.wbuf[0] = b
	return t.tx(t.wbuf[:1], nil)
}

// WriteReg sends a control/register byte followed by a data block.
func (t *Transport) WriteReg(reg uint8, data []byte) error {
	if len(data) > len(t.wbuf)-1 {
		return &errcode.E{C: errcode.InvalidParams, Op: "i2c.write", Msg: "write block too long"}
	}
	t.wbuf[0] = reg
	n := copy(t.wbuf[1:], data)
	return t.tx(t.wbuf[:1+n], nil)
}

// ReadByte reads a single byte without sending a register address first.
// Parts with a single readable port (e.g. channel switches) answer this.
func (t *Transport) ReadByte() (byte, error) {
	var r [1]byte
	if err := t.tx(nil, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

// ReadDirect fills buf without sending a register address first. Command
// driven parts stream their whole measurement block this way.
func (t *Transport) ReadDirect(buf []byte) error {
	return t.tx(nil, buf)
}

// ReadReg sends a control/register byte then reads len(buf) bytes.
func (t *Transport) ReadReg(reg uint8, buf []byte) error {
	t.wbuf[0] = reg
	return t.tx(t.wbuf[:1], buf)
}

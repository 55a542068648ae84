// platform/factories_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"io"

	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"
)

// DefaultI2CFactory configures i2c0 and i2c1 with board-default pins at
// 400 kHz. This matches Pico / Pico 2 wiring.
func DefaultI2CFactory() I2CFactory {
	b0 := machine.I2C0
	_ = b0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	b1 := machine.I2C1
	_ = b1.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C1_SDA_PIN,
		SCL:       machine.I2C1_SCL_PIN,
	})
	return &MapI2CFactory{
		Buses: map[string]drivers.I2C{"i2c0": b0, "i2c1": b1},
	}
}

// DefaultRecordWriter configures uart0 for streaming records off the board.
// Defaults inside uartx apply for pins when zero.
func DefaultRecordWriter(baud uint32) io.Writer {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{BaudRate: baud})
	return u
}

// DefaultTriggerLevel configures GP16 as the external trigger input and
// returns its level probe.
func DefaultTriggerLevel() func() bool {
	pin := machine.GP16
	pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return pin.Get
}

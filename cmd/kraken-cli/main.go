// cmd/kraken-cli/main.go
//
// Interactive console for register-mapped devices: list the catalogue,
// inspect and poke configuration fields, read data registers, pull
// samples. Runs against a real platform bus or the simulator.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/google/shlex"
	"tinygo.org/x/drivers"

	"regmap-go/platform"
	"regmap-go/regmap"
	"regmap-go/x/conv"

	// device catalogue
	_ "regmap-go/drivers/ads1x15"
	_ "regmap-go/drivers/aht20"
	_ "regmap-go/drivers/dac8574"
	_ "regmap-go/drivers/hih8121"
	_ "regmap-go/drivers/lsm9ds1"
	_ "regmap-go/drivers/ltc4015"
	_ "regmap-go/drivers/tca95xx"
)

func main() {
	busID := flag.String("bus", "sim", `bus id: "sim" or a platform bus ("i2c0", "1", ...)`)
	typ := flag.String("type", "", "bind a device type at start (see 'types')")
	addr := flag.Uint("addr", 0, "bus address override (0 = type default)")
	flag.Parse()

	var busH drivers.I2C
	if *busID == "sim" {
		busH = &platform.SimI2C{}
	} else {
		b, ok := platform.DefaultI2CFactory().ByID(*busID)
		if !ok {
			fmt.Fprintln(os.Stderr, "unknown bus:", *busID)
			os.Exit(1)
		}
		busH = b
	}

	c := &console{bus: busH, out: os.Stdout}
	if *typ != "" {
		if err := c.open(*typ, uint16(*addr)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	fmt.Fprintln(c.out, "kraken console; 'help' lists commands, 'quit' leaves")
	in := bufio.NewScanner(os.Stdin)
	c.prompt()
	for in.Scan() {
		args, err := shlex.Split(in.Text())
		if err != nil {
			fmt.Fprintln(c.out, "parse:", err)
			c.prompt()
			continue
		}
		if len(args) > 0 && (args[0] == "quit" || args[0] == "exit") {
			return
		}
		if len(args) > 0 {
			if err := c.dispatch(args); err != nil {
				fmt.Fprintln(c.out, "error:", err)
			}
		}
		c.prompt()
	}
}

type console struct {
	bus drivers.I2C
	out io.Writer
	dev *regmap.Device
	src regmap.Source
}

func (c *console) prompt() {
	if c.dev != nil {
		fmt.Fprintf(c.out, "%s@0x%02X> ", c.dev.Type(), c.dev.Addr())
	} else {
		fmt.Fprint(c.out, "> ")
	}
}

func (c *console) open(typ string, addr uint16) error {
	dev, err := regmap.New(typ, c.bus, addr)
	if err != nil {
		return err
	}
	c.dev, c.src = dev, nil
	return nil
}

func (c *console) need() (*regmap.Device, error) {
	if c.dev == nil {
		return nil, errors.New("no device bound; use: open <type> [addr]")
	}
	return c.dev, nil
}

func (c *console) dispatch(args []string) error {
	switch args[0] {
	case "help":
		fmt.Fprint(c.out, `commands:
  types                 list registered device types
  open <type> [addr]    bind a device on the bus
  fields [type]         describe configuration fields
  get <field>...        cached field values (decoded)
  set <field> <raw>     write one field (raw code, 0x.. ok)
  read [name]           fresh read: all fields, one field, or a data register
  sample                one measurement sweep, micro-unit columns
  quit
`)
		return nil

	case "types":
		types := regmap.Types()
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintln(c.out, t)
		}
		return nil

	case "open":
		if len(args) < 2 {
			return errors.New("usage: open <type> [addr]")
		}
		var addr uint64
		if len(args) > 2 {
			var err error
			addr, err = strconv.ParseUint(args[2], 0, 16)
			if err != nil {
				return err
			}
		}
		return c.open(args[1], uint16(addr))

	case "fields":
		var m regmap.Map
		if len(args) > 1 {
			var ok bool
			m, ok = regmap.Lookup(args[1])
			if !ok {
				return errors.New("unknown type: " + args[1])
			}
		} else {
			dev, err := c.need()
			if err != nil {
				return err
			}
			m = dev.Map()
		}
		c.printFields(m)
		return nil

	case "get":
		dev, err := c.need()
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return errors.New("usage: get <field>...")
		}
		vals, err := dev.Get(args[1:]...)
		if err != nil {
			return err
		}
		c.printValues(vals)
		return nil

	case "set":
		dev, err := c.need()
		if err != nil {
			return err
		}
		if len(args) != 3 {
			return errors.New("usage: set <field> <raw>")
		}
		v, err := strconv.ParseUint(args[2], 0, 64)
		if err != nil {
			return err
		}
		return dev.SetField(args[1], v)

	case "read":
		return c.cmdRead(args[1:])

	case "sample":
		return c.cmdSample()
	}
	return errors.New("unknown command: " + args[0] + " (try 'help')")
}

func (c *console) cmdRead(args []string) error {
	dev, err := c.need()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		if len(dev.Map().Fields) == 0 {
			return errors.New("no configuration fields on " + dev.Type())
		}
		vals, err := dev.Read()
		if err != nil {
			return err
		}
		c.printValues(vals)
		return nil
	}
	name := args[0]
	if _, ok := dev.Map().Fields[name]; ok {
		v, err := dev.ReadField(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s = %v\n", name, v)
		return nil
	}
	v, err := dev.ReadData(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s = 0x%X (%d)\n", name, v, v)
	return nil
}

func (c *console) cmdSample() error {
	dev, err := c.need()
	if err != nil {
		return err
	}
	if c.src == nil {
		build, ok := regmap.LookupBuilder(dev.Type())
		if !ok {
			return errors.New("no sampler registered for " + dev.Type())
		}
		src, err := build(regmap.BuildInput{Bus: c.bus, Addr: dev.Addr()})
		if err != nil {
			return err
		}
		c.src = src
	}
	vals, err := c.src.Sample()
	if err != nil {
		return err
	}
	labels := c.src.Labels()
	var num [24]byte
	for i, v := range vals {
		fmt.Fprintf(c.out, "%s = %s\n", labels[i], conv.Micro(num[:], int64(v)))
	}
	return nil
}

func (c *console) printFields(m regmap.Map) {
	names := make([]string, 0, len(m.Fields))
	for n := range m.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		f := m.Fields[n]
		fmt.Fprintf(c.out, "%-14s reg 0x%02X bit %d width %d", n, f.Reg, f.Start, f.Width)
		if f.Info != "" {
			fmt.Fprintf(c.out, "  %s", f.Info)
		}
		if len(f.Decode) > 0 {
			fmt.Fprintf(c.out, "  %v", f.Decode)
		}
		fmt.Fprintln(c.out)
	}
	if len(m.Data) > 0 {
		names = names[:0]
		for n := range m.Data {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			d := m.Data[n]
			fmt.Fprintf(c.out, "%-14s data 0x%02X %d byte(s)\n", n, d.Reg, d.Width)
		}
	}
}

func (c *console) printValues(vals map[string]any) {
	names := make([]string, 0, len(vals))
	for n := range vals {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(c.out, "%s = %v\n", n, vals[n])
	}
}

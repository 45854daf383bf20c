//go:build rp2040

package main

import (
	"machine"

	"gohal/core"
)

type i2cBus struct {
	i2c *machine.I2C
}

func i2cFor(dev core.Device) *machine.I2C {
	if dev == core.I2C(2) {
		return machine.I2C1
	}
	return machine.I2C0
}

func (p *pico) setupI2C(dev core.Device, info *core.I2CInfo) error {
	i := i2cFor(dev)
	err := i.Configure(machine.I2CConfig{
		Frequency: info.Bitrate,
		SCL:       machine.Pin(info.SCL),
		SDA:       machine.Pin(info.SDA),
	})
	if err != nil {
		return err
	}
	p.i2c[unit(dev)] = &i2cBus{i2c: i}
	return nil
}

func (p *pico) bus(dev core.Device) *i2cBus {
	if !dev.IsI2C() || unit(dev) < 0 {
		return nil
	}
	return p.i2c[unit(dev)]
}

// I2CWrite runs one transaction. machine.I2C.Tx always ends with a stop
// condition, so sendStop=false is not honoured.
func (p *pico) I2CWrite(dev core.Device, addr uint8, data []byte, sendStop bool) error {
	b := p.bus(dev)
	if b == nil {
		return core.ErrNotInitialised
	}
	return b.i2c.Tx(uint16(addr), data, nil)
}

func (p *pico) I2CRead(dev core.Device, addr uint8, buf []byte, sendStop bool) error {
	b := p.bus(dev)
	if b == nil {
		return core.ErrNotInitialised
	}
	return b.i2c.Tx(uint16(addr), nil, buf)
}

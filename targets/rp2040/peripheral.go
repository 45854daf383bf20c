//go:build rp2040

package main

import "gohal/core"

// unit returns the zero-based controller number behind dev, or -1 when
// the chip has no such controller.
func unit(dev core.Device) int {
	if n := dev.Index() - 1; n >= 0 && n < 2 {
		return n
	}
	return -1
}

// SetupPeripheral configures the controller behind dev. The HAL has already
// placed every pin in info on its function.
func (p *pico) SetupPeripheral(dev core.Device, info core.PeripheralInfo) error {
	if !dev.IsPeripheral() || unit(dev) < 0 {
		return core.ErrUnsupported
	}
	p.UnsetupPeripheral(dev)
	switch info := info.(type) {
	case *core.USARTInfo:
		return p.setupUSART(dev, info)
	case *core.SPIInfo:
		return p.setupSPI(dev, info)
	case *core.I2CInfo:
		return p.setupI2C(dev, info)
	}
	return core.ErrInvalidDevice
}

func (p *pico) KickPeripheral(dev core.Device) {
	if dev.IsUSART() && unit(dev) >= 0 {
		p.kickUSART(dev)
	}
}

func (p *pico) UnsetupPeripheral(dev core.Device) {
	n := unit(dev)
	if !dev.IsPeripheral() || n < 0 {
		return
	}
	switch {
	case dev.IsUSART():
		p.unsetupUSART(dev)
	case dev.IsSPI():
		p.spi[n] = nil
	case dev.IsI2C():
		p.i2c[n] = nil
	}
}

//go:build rp2040

package main

import (
	"machine"

	"gohal/core"
)

type spiBus struct {
	spi *machine.SPI
	buf []byte
}

func spiFor(dev core.Device) *machine.SPI {
	if dev == core.SPI(2) {
		return machine.SPI1
	}
	return machine.SPI0
}

// machinePin maps an unused HAL pin to TinyGo's NoPin.
func machinePin(pin core.Pin) machine.Pin {
	if pin == core.PinUndefined {
		return machine.NoPin
	}
	return machine.Pin(pin)
}

func (p *pico) setupSPI(dev core.Device, info *core.SPIInfo) error {
	s := spiFor(dev)
	err := s.Configure(machine.SPIConfig{
		Frequency: info.Baud,
		SCK:       machinePin(info.SCK),
		SDO:       machinePin(info.MOSI),
		SDI:       machinePin(info.MISO),
		LSBFirst:  info.Order == core.LSBFirst,
		Mode:      info.Mode,
		DataBits:  info.NumBits,
	})
	if err != nil {
		return err
	}
	p.spi[unit(dev)] = &spiBus{spi: s}
	return nil
}

// SPITransfer clocks max(len(tx), len(rx)) bytes. machine.SPI.Tx wants
// equal lengths, so the shorter side is padded from a scratch buffer.
func (p *pico) SPITransfer(dev core.Device, tx, rx []byte) error {
	if !dev.IsSPI() || unit(dev) < 0 || p.spi[unit(dev)] == nil {
		return core.ErrNotInitialised
	}
	b := p.spi[unit(dev)]
	switch {
	case tx == nil || rx == nil || len(tx) == len(rx):
		return b.spi.Tx(tx, rx)
	case len(tx) > len(rx):
		b.buf = append(b.buf[:0], make([]byte, len(tx))...)
		if err := b.spi.Tx(tx, b.buf); err != nil {
			return err
		}
		copy(rx, b.buf)
		return nil
	}
	b.buf = append(b.buf[:0], tx...)
	b.buf = append(b.buf, make([]byte, len(rx)-len(tx))...)
	return b.spi.Tx(b.buf, rx)
}

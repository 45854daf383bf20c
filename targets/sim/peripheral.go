package sim

import "gohal/core"

// I2CHandler plays an I2C target. It sees every transfer addressed on the
// bus; returning ErrNACK (or any error) fails the transfer.
type I2CHandler func(addr uint8, read bool, data []byte) error

// SPIHandler plays an SPI target. By default the bus loops MOSI back to MISO.
type SPIHandler func(tx, rx []byte)

type peripheral struct {
	info   core.PeripheralInfo
	out    []byte // USART bytes transmitted
	kicks  int
	holdTX bool
	i2c    I2CHandler
	spi    SPIHandler
	log    [][]byte // SPI bytes clocked out
}

func (s *Sim) SetupPeripheral(dev core.Device, info core.PeripheralInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.periph[dev]
	if p == nil {
		p = &peripheral{}
		s.periph[dev] = p
	}
	p.info = info
	return nil
}

// KickPeripheral drains a USART's transmit buffer straight into its output
// log.
func (s *Sim) KickPeripheral(dev core.Device) {
	s.mu.Lock()
	p, irq := s.periph[dev], s.irq
	if p != nil {
		p.kicks++
	}
	s.mu.Unlock()
	if p == nil || irq == nil || !dev.IsUSART() || s.txHeld(p) {
		return
	}

	var buf [64]byte
	for {
		n := irq.TakeTX(dev, buf[:])
		if n == 0 {
			return
		}
		s.mu.Lock()
		p.out = append(p.out, buf[:n]...)
		s.mu.Unlock()
	}
}

func (s *Sim) txHeld(p *peripheral) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.holdTX
}

// HoldTX stops a USART from draining its transmit buffer, as if flow
// control were asserted. Releasing it drains whatever is queued.
func (s *Sim) HoldTX(dev core.Device, hold bool) {
	s.mu.Lock()
	s.peripheralLocked(dev).holdTX = hold
	s.mu.Unlock()
	if !hold {
		s.KickPeripheral(dev)
	}
}

func (s *Sim) UnsetupPeripheral(dev core.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.periph[dev]; p != nil {
		p.info = nil
	}
}

func (s *Sim) SPITransfer(dev core.Device, tx, rx []byte) error {
	s.mu.Lock()
	p := s.periph[dev]
	if p == nil || p.info == nil {
		s.mu.Unlock()
		return core.ErrNotInitialised
	}
	p.log = append(p.log, append([]byte(nil), tx...))
	handler := p.spi
	s.mu.Unlock()

	if handler != nil {
		handler(tx, rx)
		return nil
	}
	n := copy(rx, tx)
	for i := n; i < len(rx); i++ {
		rx[i] = 0xFF
	}
	return nil
}

func (s *Sim) I2CWrite(dev core.Device, addr uint8, data []byte, sendStop bool) error {
	return s.i2cTransfer(dev, addr, false, data)
}

func (s *Sim) I2CRead(dev core.Device, addr uint8, buf []byte, sendStop bool) error {
	return s.i2cTransfer(dev, addr, true, buf)
}

func (s *Sim) i2cTransfer(dev core.Device, addr uint8, read bool, data []byte) error {
	s.mu.Lock()
	p := s.periph[dev]
	if p == nil || p.info == nil {
		s.mu.Unlock()
		return core.ErrNotInitialised
	}
	handler := p.i2c
	s.mu.Unlock()

	if handler == nil {
		return ErrNACK
	}
	return handler(addr, read, data)
}

// SetI2CHandler attaches a simulated target to an I2C bus.
func (s *Sim) SetI2CHandler(dev core.Device, h I2CHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peripheralLocked(dev).i2c = h
}

// SetSPIHandler replaces the loopback on an SPI bus.
func (s *Sim) SetSPIHandler(dev core.Device, h SPIHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peripheralLocked(dev).spi = h
}

func (s *Sim) peripheralLocked(dev core.Device) *peripheral {
	p := s.periph[dev]
	if p == nil {
		p = &peripheral{}
		s.periph[dev] = p
	}
	return p
}

// InjectRX delivers bytes to a USART as if they arrived on its RX pin.
func (s *Sim) InjectRX(dev core.Device, data []byte) {
	s.mu.Lock()
	irq := s.irq
	s.mu.Unlock()
	if irq == nil {
		return
	}
	irq.PushRX(dev, data)
	s.poke()
}

// UARTOutput returns everything a USART has transmitted.
func (s *Sim) UARTOutput(dev core.Device) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.periph[dev]; p != nil {
		return append([]byte(nil), p.out...)
	}
	return nil
}

// SPILog returns the bytes clocked out of an SPI bus, one entry per transfer.
func (s *Sim) SPILog(dev core.Device) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.periph[dev]; p != nil {
		return append([][]byte(nil), p.log...)
	}
	return nil
}

// PeripheralInfo returns the configuration the HAL passed to Setup, or nil.
func (s *Sim) PeripheralInfo(dev core.Device) core.PeripheralInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.periph[dev]; p != nil {
		return p.info
	}
	return nil
}

// Kicks returns how often a peripheral was kicked.
func (s *Sim) Kicks(dev core.Device) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.periph[dev]; p != nil {
		return p.kicks
	}
	return 0
}

package linux

import (
	"errors"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"gohal/core"
	"gohal/host/serial"
)

// readTimeoutMS bounds how long a USART reader blocks, so that it notices
// the port closing.
const readTimeoutMS = 100

type peripheral struct {
	info core.PeripheralInfo

	port serial.Port
	stop chan struct{}

	spiPort spi.PortCloser
	spiConn spi.Conn

	i2cBus i2c.BusCloser
}

func (p *peripheral) close() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	if p.port != nil {
		_ = p.port.Close()
	}
	if p.spiPort != nil {
		_ = p.spiPort.Close()
	}
	if p.i2cBus != nil {
		_ = p.i2cBus.Close()
	}
}

// SetupPeripheral opens the device node mapped to dev. Setting up an open
// device closes and reopens it with the new configuration.
func (l *Linux) SetupPeripheral(dev core.Device, info core.PeripheralInfo) error {
	l.mu.Lock()
	old := l.periph[dev]
	delete(l.periph, dev)
	l.mu.Unlock()
	if old != nil {
		old.close()
	}

	var (
		p   *peripheral
		err error
	)
	switch info := info.(type) {
	case *core.USARTInfo:
		p, err = l.openUSART(dev, info)
	case *core.SPIInfo:
		p, err = l.openSPI(dev, info)
	case *core.I2CInfo:
		p, err = l.openI2C(dev, info)
	default:
		err = core.ErrInvalidDevice
	}
	if err != nil {
		return err
	}
	p.info = info

	l.mu.Lock()
	l.periph[dev] = p
	l.mu.Unlock()
	return nil
}

func serialConfig(name string, u *core.USARTInfo) *serial.Config {
	cfg := serial.DefaultConfig(name)
	cfg.Baud = int(u.Baud)
	cfg.Size = u.Bytesize
	cfg.StopBits = int(u.Stopbits)
	cfg.ReadTimeout = readTimeoutMS
	switch u.Parity {
	case core.ParityOdd:
		cfg.Parity = serial.ParityOdd
	case core.ParityEven:
		cfg.Parity = serial.ParityEven
	default:
		cfg.Parity = serial.ParityNone
	}
	return cfg
}

func (l *Linux) openUSART(dev core.Device, u *core.USARTInfo) (*peripheral, error) {
	name, ok := l.cfg.SerialDevices[dev]
	if !ok {
		return nil, core.ErrUnsupported
	}
	port, err := l.cfg.OpenSerial(serialConfig(name, u))
	if err != nil {
		return nil, err
	}
	p := &peripheral{port: port, stop: make(chan struct{})}
	go l.readLoop(dev, port, p.stop)
	return p, nil
}

// readLoop stands in for the USART receive interrupt.
func (l *Linux) readLoop(dev core.Device, port serial.Port, stop <-chan struct{}) {
	buf := make([]byte, 64)
	for {
		n, err := port.Read(buf)
		select {
		case <-stop:
			return
		default:
		}
		if n > 0 {
			if irq := l.handler(); irq != nil {
				irq.PushRX(dev, buf[:n])
			}
			l.poke()
		}
		if err != nil && !errors.Is(err, io.EOF) {
			core.DebugPrintln("[linux] " + dev.String() + " read: " + err.Error())
			return
		}
	}
}

func (l *Linux) openSPI(dev core.Device, s *core.SPIInfo) (*peripheral, error) {
	name, ok := l.cfg.SPIPorts[dev]
	if !ok {
		return nil, core.ErrUnsupported
	}
	port, err := l.cfg.OpenSPI(name)
	if err != nil {
		return nil, err
	}
	mode := spi.Mode(s.Mode)
	if s.Order == core.LSBFirst {
		mode |= spi.LSBFirst
	}
	conn, err := port.Connect(physic.Frequency(s.Baud)*physic.Hertz, mode, int(s.NumBits))
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return &peripheral{spiPort: port, spiConn: conn}, nil
}

func (l *Linux) openI2C(dev core.Device, c *core.I2CInfo) (*peripheral, error) {
	name, ok := l.cfg.I2CBuses[dev]
	if !ok {
		return nil, core.ErrUnsupported
	}
	bus, err := l.cfg.OpenI2C(name)
	if err != nil {
		return nil, err
	}
	// Many adapters fix the bus speed in the device tree.
	if err := bus.SetSpeed(physic.Frequency(c.Bitrate) * physic.Hertz); err != nil {
		core.DebugPrintln("[linux] " + dev.String() + " set speed: " + err.Error())
	}
	return &peripheral{i2cBus: bus}, nil
}

// KickPeripheral drains a USART's transmit buffer into the port.
func (l *Linux) KickPeripheral(dev core.Device) {
	l.mu.Lock()
	p, irq := l.periph[dev], l.irq
	l.mu.Unlock()
	if p == nil || p.port == nil || irq == nil {
		return
	}

	var buf [64]byte
	for {
		n := irq.TakeTX(dev, buf[:])
		if n == 0 {
			return
		}
		if _, err := p.port.Write(buf[:n]); err != nil {
			core.DebugPrintln("[linux] " + dev.String() + " write: " + err.Error())
			return
		}
	}
}

func (l *Linux) UnsetupPeripheral(dev core.Device) {
	l.mu.Lock()
	p := l.periph[dev]
	delete(l.periph, dev)
	l.mu.Unlock()
	if p != nil {
		p.close()
	}
}

func (l *Linux) get(dev core.Device) *peripheral {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.periph[dev]
}

func (l *Linux) SPITransfer(dev core.Device, tx, rx []byte) error {
	p := l.get(dev)
	if p == nil || p.spiConn == nil {
		return core.ErrNotInitialised
	}
	// spidev wants equal lengths.
	n := max(len(tx), len(rx))
	w, r := tx, rx
	if len(w) < n {
		w = make([]byte, n)
		copy(w, tx)
	}
	if len(r) < n {
		r = make([]byte, n)
	}
	if err := p.spiConn.Tx(w, r); err != nil {
		return err
	}
	if len(rx) > 0 && &r[0] != &rx[0] {
		copy(rx, r)
	}
	return nil
}

// I2CWrite sends data in its own transaction. i2c-dev cannot hold the bus
// between two calls, so sendStop=false has no effect here.
func (l *Linux) I2CWrite(dev core.Device, addr uint8, data []byte, sendStop bool) error {
	p := l.get(dev)
	if p == nil || p.i2cBus == nil {
		return core.ErrNotInitialised
	}
	return p.i2cBus.Tx(uint16(addr), data, nil)
}

func (l *Linux) I2CRead(dev core.Device, addr uint8, buf []byte, sendStop bool) error {
	p := l.get(dev)
	if p == nil || p.i2cBus == nil {
		return core.ErrNotInitialised
	}
	return p.i2cBus.Tx(uint16(addr), nil, buf)
}

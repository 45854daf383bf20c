//go:build !wasm

package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	serialConfig, err := cfg.tarm()
	if err != nil {
		return nil, err
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &NativePort{
		port: port,
		cfg:  cfg,
	}, nil
}

// tarm converts cfg to the tarm/serial configuration.
func (c *Config) tarm() (*serial.Config, error) {
	sc := &serial.Config{
		Name:        c.Device,
		Baud:        c.Baud,
		Size:        c.Size,
		ReadTimeout: time.Duration(c.ReadTimeout) * time.Millisecond,
	}
	if sc.Size == 0 {
		sc.Size = serial.DefaultSize
	}
	if sc.Size < 5 || sc.Size > 8 {
		return nil, fmt.Errorf("serial %s: %w", c.Device, serial.ErrBadSize)
	}

	switch c.Parity {
	case 0, ParityNone:
		sc.Parity = serial.ParityNone
	case ParityOdd:
		sc.Parity = serial.ParityOdd
	case ParityEven:
		sc.Parity = serial.ParityEven
	default:
		return nil, fmt.Errorf("serial %s: %w", c.Device, serial.ErrBadParity)
	}

	switch c.StopBits {
	case 0, 1:
		sc.StopBits = serial.Stop1
	case 2:
		sc.StopBits = serial.Stop2
	default:
		return nil, fmt.Errorf("serial %s: %w", c.Device, serial.ErrBadStopBits)
	}
	return sc, nil
}

// Read reads data from the serial port
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush discards unread input and unsent output
func (p *NativePort) Flush() error {
	return p.port.Flush()
}

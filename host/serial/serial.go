package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory ports for tests
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Parity of a serial frame, as the letter used in "8N1".
type Parity byte

const (
	ParityNone Parity = 'N'
	ParityOdd  Parity = 'O'
	ParityEven Parity = 'E'
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/serial0", "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate
	Baud int

	// Data bits per character: 5-8. 0 means 8.
	Size byte

	Parity Parity

	// Stop bits: 1 or 2. 0 means 1.
	StopBits int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns 9600 baud 8N1 with a short read timeout so that
// reader goroutines notice Close promptly.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        9600,
		Size:        8,
		Parity:      ParityNone,
		StopBits:    1,
		ReadTimeout: 100, // 100ms read timeout
	}
}

// String formats the frame settings as "9600 8N1".
func (c *Config) String() string {
	size, stop := c.Size, c.StopBits
	if size == 0 {
		size = 8
	}
	if stop == 0 {
		stop = 1
	}
	parity := c.Parity
	if parity == 0 {
		parity = ParityNone
	}
	return itoa(c.Baud) + " " + string(rune('0'+size)) + string(rune(parity)) + string(rune('0'+stop))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

// Package linux runs the HAL on a Linux single-board computer. Pins, edges
// and hardware PWM go through periph.io, SPI and I2C through the kernel's
// spidev and i2c-dev drivers, and USARTs through host/serial.
//
// There are no real interrupts on the host. Edge watches, the utility timer
// and USART receive each run on their own goroutine and call the HAL's
// interrupt entry points, which serialise them.
package linux

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"gohal/boards"
	"gohal/core"
	"gohal/host/serial"
)

// TicksPerSecond is fixed: the host clock counts microseconds.
const TicksPerSecond = 1000000

// DefaultEdgePoll is how long a watch goroutine blocks in WaitForEdge before
// checking whether it was stopped.
const DefaultEdgePoll = 100 * time.Millisecond

// Config describes the host. The zero value is a Raspberry Pi with its
// standard device nodes.
type Config struct {
	Board *core.Board // default: boards "rpi"

	// Clock drives the time base and the utility timer. Default: real time.
	Clock clockwork.Clock

	// Hooks for reaching the hardware. Defaults: gpioreg.ByName,
	// spireg.Open, i2creg.Open and serial.Open.
	PinByName  func(name string) gpio.PinIO
	OpenSPI    func(name string) (spi.PortCloser, error)
	OpenI2C    func(name string) (i2c.BusCloser, error)
	OpenSerial func(cfg *serial.Config) (serial.Port, error)

	// Device nodes behind each peripheral. A peripheral missing from its
	// map cannot be set up.
	SerialDevices map[core.Device]string
	SPIPorts      map[core.Device]string
	I2CBuses      map[core.Device]string

	// WatchdogDevice is the kernel watchdog node, eg. "/dev/watchdog".
	// Empty disables EnableWatchdog.
	WatchdogDevice string

	// Root is prepended to the /sys and /etc paths read for system info.
	Root string

	EdgePoll time.Duration

	// SkipHostInit leaves periph.io drivers unloaded, for tests that pass
	// their own pins and buses.
	SkipHostInit bool
}

// Ensure compile-time conformance with core.Backend
var _ core.Backend = (*Linux)(nil)

// Linux implements core.Backend.
type Linux struct {
	cfg   Config
	board *core.Board
	clock clockwork.Clock
	start time.Time

	mu     sync.Mutex
	irq    core.IRQHandler
	offset int64 // added to the elapsed microseconds by SetNow

	pins    []gpio.PinIO // nil where the host has no such pin
	states  []core.PinState
	outs    []bool
	watched []bool

	timer   utilTimer
	watches [core.EXTICount]*watcher
	outputs map[core.PinFunction]*pwmOutput
	periph  map[core.Device]*peripheral

	wake     chan struct{}
	watchdog *os.File
	killed   bool
}

// New builds a backend. Unless cfg.SkipHostInit is set it loads the
// periph.io host drivers first.
func New(cfg Config) (*Linux, error) {
	if !cfg.SkipHostInit {
		if _, err := host.Init(); err != nil {
			return nil, err
		}
	}
	if cfg.Board == nil {
		b, err := boards.Named("rpi")
		if err != nil {
			return nil, err
		}
		cfg.Board = b
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.PinByName == nil {
		cfg.PinByName = gpioreg.ByName
	}
	if cfg.OpenSPI == nil {
		cfg.OpenSPI = spireg.Open
	}
	if cfg.OpenI2C == nil {
		cfg.OpenI2C = i2creg.Open
	}
	if cfg.OpenSerial == nil {
		cfg.OpenSerial = serial.Open
	}
	if cfg.SerialDevices == nil {
		cfg.SerialDevices = map[core.Device]string{core.Serial(1): "/dev/serial0"}
	}
	if cfg.SPIPorts == nil {
		cfg.SPIPorts = map[core.Device]string{core.SPI(1): "/dev/spidev0.0"}
	}
	if cfg.I2CBuses == nil {
		cfg.I2CBuses = map[core.Device]string{core.I2C(1): "/dev/i2c-1"}
	}
	if cfg.Root == "" {
		cfg.Root = "/"
	}
	if cfg.EdgePoll == 0 {
		cfg.EdgePoll = DefaultEdgePoll
	}

	n := len(cfg.Board.Pins)
	l := &Linux{
		cfg:     cfg,
		board:   cfg.Board,
		clock:   cfg.Clock,
		start:   cfg.Clock.Now(),
		pins:    make([]gpio.PinIO, n),
		states:  make([]core.PinState, n),
		outs:    make([]bool, n),
		watched: make([]bool, n),
		outputs: make(map[core.PinFunction]*pwmOutput),
		periph:  make(map[core.Device]*peripheral),
		wake:    make(chan struct{}, 1),
	}
	for i := range cfg.Board.Pins {
		if !cfg.Board.IsPinValid(core.Pin(i)) {
			continue
		}
		l.pins[i] = cfg.PinByName(cfg.Board.Pins[i].Name)
		l.states[i] = cfg.Board.PowerOnState(core.Pin(i))
	}
	return l, nil
}

func (l *Linux) Board() *core.Board { return l.board }

func (l *Linux) Attach(h core.IRQHandler) {
	l.mu.Lock()
	l.irq = h
	l.mu.Unlock()
}

func (l *Linux) handler() core.IRQHandler {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.irq
}

// Kill stops the timer, every watch and every peripheral. A running
// kernel watchdog is left alone.
func (l *Linux) Kill() {
	l.mu.Lock()
	l.disarmLocked()
	l.timer.enabled = false
	for line := range l.watches {
		l.stopWatchLocked(line)
	}
	periph := l.periph
	l.periph = make(map[core.Device]*peripheral)
	clear(l.outputs)
	l.killed = true
	l.mu.Unlock()

	for _, p := range periph {
		p.close()
	}
}

// ---- clock ----

func (l *Linux) Now() core.SysTime {
	us := l.clock.Since(l.start).Microseconds()
	l.mu.Lock()
	us += l.offset
	l.mu.Unlock()
	return core.SysTime(us)
}

// SetNow shifts the time base. Running timers keep their real-time
// deadlines.
func (l *Linux) SetNow(t core.SysTime) {
	us := l.clock.Since(l.start).Microseconds()
	l.mu.Lock()
	l.offset = int64(t) - us
	l.mu.Unlock()
}

func (l *Linux) TicksPerSecond() uint64 { return TicksPerSecond }

func (l *Linux) DelayMicroseconds(us uint32) {
	l.clock.Sleep(time.Duration(us) * time.Microsecond)
}

// ---- power ----

// Sleep blocks until the wake time or the next edge, timer expiry or
// received byte.
func (l *Linux) Sleep(until core.SysTime) bool {
	// Drop the token of an interrupt the main loop already handled.
	select {
	case <-l.wake:
	default:
	}
	if irq := l.handler(); irq != nil && irq.PendingEvent() {
		return true
	}
	if until == core.SleepForever {
		<-l.wake
		return true
	}
	now := l.Now()
	if until <= now {
		return true
	}
	select {
	case <-l.wake:
	case <-l.clock.After(time.Duration(until-now) * time.Microsecond):
	}
	return true
}

func (l *Linux) poke() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// ErrNoWatchdog is returned by EnableWatchdog when no device is configured.
var ErrNoWatchdog = errors.New("no watchdog device")

// EnableWatchdog opens the kernel watchdog. The kernel picks the timeout;
// any write to the device resets it.
func (l *Linux) EnableWatchdog(timeout float64) error {
	if l.cfg.WatchdogDevice == "" {
		return ErrNoWatchdog
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watchdog != nil {
		return nil
	}
	f, err := os.OpenFile(l.cfg.WatchdogDevice, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	l.watchdog = f
	_, err = f.Write([]byte{0})
	return err
}

func (l *Linux) KickWatchdog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watchdog != nil {
		if _, err := l.watchdog.Write([]byte{0}); err != nil {
			core.DebugPrintln("[linux] watchdog kick: " + err.Error())
		}
	}
}

package core

import "sync/atomic"

// Defaults for New.
const (
	DefaultEventQueueSize     = 64
	DefaultTXBufferSize       = 256
	DefaultSoftWatchdogWindow = 1000.0 // ms
)

// HAL is the checked layer over a Backend. Methods that return errors
// validate their arguments before touching hardware; the unchecked fast
// paths (SetDigital, Digital, SetOutputValue, ReadAnalogFast) do not.
//
// Unless noted otherwise methods are for main context only. The IRQHandler
// methods are the interrupt entry points.
type HAL struct {
	b     Backend
	board *Board
	tps   uint64

	funcs   []PinFunction  // function currently bound to each pin
	watched [EXTICount]Pin // pin behind each EXTI device

	events  *EventQueue
	pending atomic.Bool
	wake    chan struct{}
	onEvent func()

	tasks        TaskQueue
	timerArmed   bool    // utility timer will fire
	timerEnabled bool    // timerBase is meaningful
	timerBase    SysTime // previous intended expiry, or start time
	timerDue     SysTime // next intended expiry

	softPWM  []atomic.Pointer[softPWM] // indexed by pin
	pulseEnd map[Pin]SysTime

	devices    [DeviceCount]deviceState
	txCapacity int

	irqOff   int
	irqState State

	softWatchdogWindow float64
	softWatchdogKick   atomic.Uint64
	interruptRequested atomic.Bool
}

// Option configures New.
type Option func(*config)

type config struct {
	eventQueueSize     int
	txBufferSize       int
	onEvent            func()
	softWatchdogWindow float64
}

// WithEventQueueSize sets how many IOEvents can wait before edges are dropped.
func WithEventQueueSize(n int) Option {
	return func(c *config) { c.eventQueueSize = n }
}

// WithTXBufferSize sets the per-USART transmit buffer size.
func WithTXBufferSize(n int) Option {
	return func(c *config) { c.txBufferSize = n }
}

// WithOnEvent installs a notifier called, from interrupt context, once per
// batch of events: when the pending flag goes from clear to set.
func WithOnEvent(fn func()) Option {
	return func(c *config) { c.onEvent = fn }
}

// WithSoftWatchdogWindow sets how long, in ms, a KickSoftWatchdog call
// shields the runtime from RequestInterrupt.
func WithSoftWatchdogWindow(ms float64) Option {
	return func(c *config) { c.softWatchdogWindow = ms }
}

// New wraps b and attaches itself as b's interrupt handler.
func New(b Backend, opts ...Option) *HAL {
	cfg := config{
		eventQueueSize:     DefaultEventQueueSize,
		txBufferSize:       DefaultTXBufferSize,
		softWatchdogWindow: DefaultSoftWatchdogWindow,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.eventQueueSize < 1 {
		cfg.eventQueueSize = 1
	}
	if cfg.txBufferSize < 1 {
		cfg.txBufferSize = 1
	}

	h := &HAL{
		b:                  b,
		board:              b.Board(),
		tps:                b.TicksPerSecond(),
		events:             NewEventQueue(cfg.eventQueueSize),
		wake:               make(chan struct{}, 1),
		onEvent:            cfg.onEvent,
		pulseEnd:           make(map[Pin]SysTime),
		txCapacity:         cfg.txBufferSize,
		softWatchdogWindow: cfg.softWatchdogWindow,
	}
	if h.tps == 0 {
		h.tps = 1
	}
	h.funcs = make([]PinFunction, len(h.board.Pins))
	h.softPWM = make([]atomic.Pointer[softPWM], len(h.board.Pins))
	for i := range h.watched {
		h.watched[i] = PinUndefined
	}
	b.Attach(h)
	return h
}

// Global singleton used by target code.
var defaultHAL *HAL

// SetDefault is called by target-specific code to register its HAL.
func SetDefault(h *HAL) {
	defaultHAL = h
}

// MustHAL returns the configured HAL or panics if missing.
func MustHAL() *HAL {
	if defaultHAL == nil {
		panic("HAL not configured")
	}
	return defaultHAL
}

// Backend returns the wrapped backend.
func (h *HAL) Backend() Backend { return h.b }

// Board returns the capability table.
func (h *HAL) Board() *Board { return h.board }

// Init puts every pin with a non-default power-on state into that state.
func (h *HAL) Init() {
	for i := range h.board.Pins {
		pin := Pin(i)
		if !h.board.IsPinValid(pin) {
			continue
		}
		if h.board.Pins[i].DefaultState != StateUndefined {
			h.b.SetState(pin, h.board.Pins[i].DefaultState)
		}
	}
}

// Reset returns the device to its post-Init condition: the utility timer is
// stopped and its tasks dropped, all watches and peripherals are released
// and every pin goes back to its power-on state.
func (h *HAL) Reset() {
	s := disableInterrupts()
	h.tasks.Clear()
	h.stopTimer()
	restoreInterrupts(s)

	for i := range h.softPWM {
		h.softPWM[i].Store(nil)
	}
	clear(h.pulseEnd)

	for line, pin := range h.watched {
		if pin != PinUndefined {
			h.unwatch(EXTI(line), pin)
		}
	}
	for d := DeviceSerial1; d < DeviceCount; d++ {
		_ = h.Unsetup(d)
	}

	for i := range h.board.Pins {
		pin := Pin(i)
		if !h.board.IsPinValid(pin) {
			continue
		}
		h.funcs[i] = PinFunctionNone
		h.b.SetState(pin, h.board.PowerOnState(pin))
	}

	h.Idle(func(IOEvent) {})
	h.interruptRequested.Store(false)
}

// Kill resets the HAL and then stops the backend. The HAL must not be used
// afterwards.
func (h *HAL) Kill() {
	h.Reset()
	h.b.Kill()
}

// InterruptsOff masks interrupts. Calls nest. While interrupts are off only
// the unchecked fast paths may be used.
func (h *HAL) InterruptsOff() {
	if h.irqOff == 0 {
		h.irqState = disableInterrupts()
	}
	h.irqOff++
}

// InterruptsOn undoes one InterruptsOff.
func (h *HAL) InterruptsOn() {
	if h.irqOff == 0 {
		return
	}
	h.irqOff--
	if h.irqOff == 0 {
		restoreInterrupts(h.irqState)
	}
}

// IsInInterrupt reports whether the caller runs in interrupt context. On the
// host it reports whether any interrupt entry point is running.
func (h *HAL) IsInInterrupt() bool {
	return inInterrupt()
}

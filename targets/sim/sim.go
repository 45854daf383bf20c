// Package sim is a deterministic simulated microcontroller. Time only moves
// when the test (or halsim) advances it, and every hardware effect is
// recorded so that it can be inspected afterwards.
//
// The simulator never holds its own lock while calling into the HAL, so the
// HAL may call back into it from any interrupt entry point.
package sim

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"

	"gohal/boards"
	"gohal/core"
)

// DefaultTicksPerSecond gives microsecond ticks.
const DefaultTicksPerSecond = 1000000

// ErrNACK is returned by I2C transfers that no handler acknowledged.
var ErrNACK = errors.New("i2c: no acknowledge")

// Config describes the simulated device.
type Config struct {
	Board          *core.Board // default: boards "sim32"
	TicksPerSecond uint64      // default: DefaultTicksPerSecond
	Start          core.SysTime
	Serial         []byte
	USBConnected   bool
	Seed           uint64 // random number seed
	// NoHardwareAnalog makes AnalogOutput fail with core.ErrUnsupported,
	// as on a part without DAC or PWM timers.
	NoHardwareAnalog bool
}

// Edge is one recorded output transition.
type Edge struct {
	Time  core.SysTime
	Level bool
}

// AnalogOut is a running DAC or PWM output.
type AnalogOut struct {
	Function core.PinFunction
	Value    uint16
	Freq     float64
}

type pin struct {
	state   core.PinState
	out     bool
	in      bool
	driven  bool // SetInput was called
	analog  float64
	history []Edge
	output  *AnalogOut
}

type timer struct {
	enabled     bool
	armed       bool
	base        core.SysTime
	due         core.SysTime
	starts      int
	reschedules int
	disables    int
	expiries    []core.SysTime
}

type watch struct {
	pin     core.Pin
	enabled bool
	flags   core.WatchFlags
}

// Ensure compile-time conformance with core.Backend
var _ core.Backend = (*Sim)(nil)

// Sim implements core.Backend.
type Sim struct {
	mu    sync.Mutex
	cfg   Config
	board *core.Board
	irq   core.IRQHandler
	now   core.SysTime
	pins  []pin
	timer timer

	watches [core.EXTICount]watch

	wake         chan struct{}
	sleeps       int
	lastWakeSet  bool
	lastSleepFor core.SysTime

	watchdog struct {
		enabled  bool
		timeout  float64
		lastKick core.SysTime
		kicks    int
	}

	periph map[core.Device]*peripheral
	rng    *rand.Rand
	clock  uint32
	killed bool
}

// New builds a simulator.
func New(cfg Config) *Sim {
	if cfg.Board == nil {
		cfg.Board = boards.MustNamed("sim32")
	}
	if cfg.TicksPerSecond == 0 {
		cfg.TicksPerSecond = DefaultTicksPerSecond
	}
	if cfg.Serial == nil {
		cfg.Serial = []byte("SIM-0001")
	}
	s := &Sim{
		cfg:    cfg,
		board:  cfg.Board,
		now:    cfg.Start,
		pins:   make([]pin, len(cfg.Board.Pins)),
		wake:   make(chan struct{}, 1),
		periph: make(map[core.Device]*peripheral),
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		clock:  cfg.Board.SystemClockHz,
	}
	for i := range s.pins {
		s.pins[i].state = cfg.Board.PowerOnState(core.Pin(i))
	}
	return s
}

func (s *Sim) Board() *core.Board { return s.board }

func (s *Sim) Attach(h core.IRQHandler) {
	s.mu.Lock()
	s.irq = h
	s.mu.Unlock()
}

func (s *Sim) Kill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.enabled = false
	s.timer.armed = false
	for i := range s.watches {
		s.watches[i] = watch{}
	}
	clear(s.periph)
	s.killed = true
}

// Killed reports whether Kill was called.
func (s *Sim) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// ---- clock ----

func (s *Sim) Now() core.SysTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Sim) SetNow(t core.SysTime) {
	s.mu.Lock()
	s.now = t
	s.mu.Unlock()
}

func (s *Sim) TicksPerSecond() uint64 { return s.cfg.TicksPerSecond }

// DelayMicroseconds moves the clock without delivering timer expiries, like
// a busy-wait with interrupts masked.
func (s *Sim) DelayMicroseconds(us uint32) {
	s.mu.Lock()
	s.now += core.SysTime(uint64(us) * s.cfg.TicksPerSecond / 1000000)
	s.mu.Unlock()
}

// Advance moves time forward by d, firing the utility timer on the way.
func (s *Sim) Advance(d core.SysTime) {
	s.AdvanceTo(s.Now() + d)
}

// AdvanceTo moves time forward to t, firing every utility timer expiry due
// at or before t at its due time. Expiries already in the past fire at the
// current time. Time never moves backwards.
func (s *Sim) AdvanceTo(t core.SysTime) {
	for {
		s.mu.Lock()
		if !s.timer.armed || s.timer.due > t || s.irq == nil {
			if t > s.now {
				s.now = t
			}
			s.mu.Unlock()
			return
		}
		due := s.timer.due
		if due > s.now {
			s.now = due
		}
		s.timer.armed = false
		s.timer.base = due
		s.timer.expiries = append(s.timer.expiries, due)
		irq := s.irq
		s.mu.Unlock()

		irq.UtilTimerExpired()
	}
}

// RunUntilIdle advances until the utility timer is no longer armed, or
// limit ticks have passed.
func (s *Sim) RunUntilIdle(limit core.SysTime) {
	end := s.Now() + limit
	for {
		due, armed := s.TimerDue()
		if !armed || due > end {
			s.AdvanceTo(end)
			return
		}
		s.AdvanceTo(due)
	}
}

// ---- utility timer ----

func (s *Sim) UtilTimerStart(period core.SysTime) {
	if period == 0 {
		period = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.enabled = true
	s.timer.armed = true
	s.timer.base = s.now
	s.timer.due = s.now + period
	s.timer.starts++
}

// UtilTimerReschedule measures period from the previous intended expiry.
// Simulated expiries have no latency, so the jitter bound is zero.
func (s *Sim) UtilTimerReschedule(period core.SysTime) {
	if period == 0 {
		period = 1
	}
	s.mu.Lock()
	if !s.timer.enabled {
		s.mu.Unlock()
		s.UtilTimerStart(period)
		return
	}
	defer s.mu.Unlock()
	s.timer.armed = true
	s.timer.due = s.timer.base + period
	s.timer.reschedules++
}

func (s *Sim) UtilTimerDisable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer.enabled || s.timer.armed {
		s.timer.disables++
	}
	s.timer.enabled = false
	s.timer.armed = false
}

// TimerDue reports when the utility timer will next fire.
func (s *Sim) TimerDue() (core.SysTime, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.due, s.timer.armed
}

// TimerStats returns how often the timer was started, rescheduled and
// disabled.
func (s *Sim) TimerStats() (starts, reschedules, disables int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.starts, s.timer.reschedules, s.timer.disables
}

// Expiries returns the intended time of every expiry delivered so far.
func (s *Sim) Expiries() []core.SysTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SysTime(nil), s.timer.expiries...)
}

// ---- GPIO ----

func (s *Sim) SetValue(p core.Pin, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := &s.pins[p]
	if ps.out != value || len(ps.history) == 0 {
		ps.history = append(ps.history, Edge{Time: s.now, Level: value})
	}
	ps.out = value
}

func (s *Sim) Value(p core.Pin) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level(p)
}

func (s *Sim) level(p core.Pin) bool {
	ps := &s.pins[p]
	if ps.state.IsOutput() {
		return ps.out
	}
	if !ps.driven {
		// Floating inputs follow their pull resistor.
		return ps.state.Mode() == core.StateInputPullUp
	}
	return ps.in
}

func (s *Sim) SetState(p core.Pin, state core.PinState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := &s.pins[p]
	ps.state = state.Mode()
	if ps.output != nil && !state.IsAF() && state.Mode() != core.StateAnalog {
		ps.output = nil
	}
}

func (s *Sim) State(p core.Pin) core.PinState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := &s.pins[p]
	st := ps.state
	if st.IsOutput() && ps.out {
		st |= core.PinStateIsOn
	}
	return st
}

// SetInput drives an input pin from outside. A level change on a watched
// pin raises an edge interrupt and wakes a sleeping device.
func (s *Sim) SetInput(p core.Pin, level bool) {
	s.mu.Lock()
	ps := &s.pins[p]
	before := s.level(p)
	ps.in = level
	ps.driven = true
	changed := s.level(p) != before
	dev := core.DeviceNone
	if changed {
		for line, w := range s.watches {
			if w.enabled && w.pin == p {
				dev = core.EXTI(line)
			}
		}
	}
	now, irq := s.now, s.irq
	lvl := s.level(p)
	s.mu.Unlock()

	if dev != core.DeviceNone && irq != nil {
		irq.WatchEdge(dev, lvl, now)
		s.poke()
	}
}

// Pulse drives an input to level for d ticks and back.
func (s *Sim) Pulse(p core.Pin, level bool, d core.SysTime) {
	s.SetInput(p, level)
	s.Advance(d)
	s.SetInput(p, !level)
}

// Level returns the driven output level of a pin.
func (s *Sim) Level(p core.Pin) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins[p].out
}

// History returns every output transition of a pin.
func (s *Sim) History(p core.Pin) []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Edge(nil), s.pins[p].history...)
}

// ClearHistory forgets recorded transitions.
func (s *Sim) ClearHistory(p core.Pin) {
	s.mu.Lock()
	s.pins[p].history = nil
	s.mu.Unlock()
}

// ---- watches ----

func (s *Sim) CanWatch(p core.Pin) bool {
	return s.board.IsPinValid(p)
}

func (s *Sim) Watch(p core.Pin, enable bool, flags core.WatchFlags) core.Device {
	line := s.board.EXTILine(p)
	if line < 0 {
		return core.DeviceNone
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &s.watches[line]
	if !enable {
		if w.pin == p {
			*w = watch{}
		}
		return core.DeviceNone
	}
	if w.enabled && w.pin != p {
		return core.DeviceNone
	}
	*w = watch{pin: p, enabled: true, flags: flags}
	return core.EXTI(line)
}

func (s *Sim) WatchedPinLevel(dev core.Device) bool {
	if !dev.IsEXTI() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.watches[dev.Index()]
	if !w.enabled {
		return false
	}
	return s.level(w.pin)
}

// WatchFlags returns the flags a line was enabled with.
func (s *Sim) WatchFlags(dev core.Device) (core.WatchFlags, bool) {
	if !dev.IsEXTI() {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.watches[dev.Index()]
	return w.flags, w.enabled
}

// ---- analog ----

func (s *Sim) Analog(p core.Pin) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins[p].analog
}

func (s *Sim) AnalogFast(p core.Pin) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint16(s.pins[p].analog*65535 + 0.5)
}

// SetAnalog sets the voltage, as a fraction of VRef, seen by an ADC pin.
func (s *Sim) SetAnalog(p core.Pin, v float64) {
	s.mu.Lock()
	s.pins[p].analog = math.Max(0, math.Min(1, v))
	s.mu.Unlock()
}

func (s *Sim) AnalogOutput(p core.Pin, fn core.PinFunction, value float64, freq float64) error {
	if s.cfg.NoHardwareAnalog {
		return core.ErrUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := &s.pins[p]
	ps.output = &AnalogOut{Function: fn, Value: uint16(value*65535 + 0.5), Freq: freq}
	if fn.IsDAC() {
		ps.state = core.StateAnalog
	} else {
		ps.state = core.StateAFOutput
	}
	return nil
}

func (s *Sim) SetOutputValue(fn core.PinFunction, value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pins {
		if o := s.pins[i].output; o != nil && o.Function == fn {
			o.Value = value
		}
	}
}

// AnalogOutputOf returns the hardware output running on a pin.
func (s *Sim) AnalogOutputOf(p core.Pin) (AnalogOut, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.pins[p].output; o != nil {
		return *o, true
	}
	return AnalogOut{}, false
}

// ---- power ----

// Sleep with SleepForever blocks until an interrupt (SetInput on a watched
// pin, InjectRX or Interrupt) arrives after the call. A finite sleep jumps the clock to
// the wake time, or to the utility timer expiry if that comes first, and
// delivers the expiry.
func (s *Sim) Sleep(until core.SysTime) bool {
	s.mu.Lock()
	s.sleeps++
	s.lastSleepFor = until
	irq := s.irq
	if until == core.SleepForever {
		s.lastWakeSet = false
		s.mu.Unlock()
		// A token left by an interrupt the main loop already handled
		// must not end this sleep.
		select {
		case <-s.wake:
		default:
		}
		if irq != nil && irq.PendingEvent() {
			return true
		}
		<-s.wake
		return true
	}
	s.lastWakeSet = true
	target := until
	if s.timer.armed && s.timer.due < target {
		target = s.timer.due
	}
	s.mu.Unlock()

	s.AdvanceTo(target)
	return true
}

// Interrupt simulates an interrupt with no other effect, after ticks
// ticks: time moves on and a sleeping device wakes.
func (s *Sim) Interrupt(after core.SysTime) {
	if after == 0 {
		after = 1
	}
	s.mu.Lock()
	s.now += after
	s.mu.Unlock()
	s.poke()
}

func (s *Sim) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// SleepStats reports how many sleeps happened and whether the last one
// armed a wake-up timer.
func (s *Sim) SleepStats() (sleeps int, lastArmedWake bool, lastUntil core.SysTime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleeps, s.lastWakeSet, s.lastSleepFor
}

func (s *Sim) EnableWatchdog(timeout float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchdog.enabled = true
	s.watchdog.timeout = timeout
	s.watchdog.lastKick = s.now
	return nil
}

func (s *Sim) KickWatchdog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchdog.lastKick = s.now
	s.watchdog.kicks++
}

// WatchdogExpired reports whether an enabled watchdog would have reset the
// device by now.
func (s *Sim) WatchdogExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.watchdog.enabled {
		return false
	}
	elapsed := float64(s.now-s.watchdog.lastKick) / float64(s.cfg.TicksPerSecond)
	return elapsed > s.watchdog.timeout
}

// WatchdogKicks returns how often the watchdog was kicked.
func (s *Sim) WatchdogKicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchdog.kicks
}

// ---- system info ----

func (s *Sim) SerialNumber() []byte { return append([]byte(nil), s.cfg.Serial...) }
func (s *Sim) IsUSBConnected() bool { return s.cfg.USBConnected }

func (s *Sim) RandomNumber() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Uint32()
}

func (s *Sim) Temperature() float64 { return 25 }

func (s *Sim) VRef() float64 {
	if s.board.VRef == 0 {
		return math.NaN()
	}
	return s.board.VRef
}

func (s *Sim) SystemClock() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

func (s *Sim) SetSystemClock(hz uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = hz
	return hz
}

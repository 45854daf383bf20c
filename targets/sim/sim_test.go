package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohal/boards"
	"gohal/core"
)

// recorder is an IRQHandler that remembers every call.
type recorder struct {
	s       *Sim
	expired []core.SysTime
	edges   []core.IOEvent
	rx      []byte
	onTimer func()
}

func (r *recorder) WatchEdge(dev core.Device, level bool, at core.SysTime) {
	r.edges = append(r.edges, core.IOEvent{Device: dev, Level: level, Time: at})
}

func (r *recorder) UtilTimerExpired() {
	r.expired = append(r.expired, r.s.Now())
	if r.onTimer != nil {
		r.onTimer()
	}
}

func (r *recorder) PushRX(dev core.Device, data []byte) { r.rx = append(r.rx, data...) }
func (r *recorder) TakeTX(dev core.Device, buf []byte) int { return 0 }
func (r *recorder) PendingEvent() bool { return false }

func newRecorded(cfg Config) (*Sim, *recorder) {
	s := New(cfg)
	r := &recorder{s: s}
	s.Attach(r)
	return s, r
}

func TestDefaults(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, "sim32", s.Board().Name)
	assert.Equal(t, uint64(DefaultTicksPerSecond), s.TicksPerSecond())
	assert.Equal(t, []byte("SIM-0001"), s.SerialNumber())
	assert.Equal(t, uint32(72000000), s.SystemClock())

	a15, _ := s.Board().PinByName("A15")
	assert.Equal(t, core.StateInputPullDown, s.State(a15))
}

func TestAdvanceFiresAtDueTime(t *testing.T) {
	s, r := newRecorded(Config{})

	s.UtilTimerStart(100)
	s.Advance(50)
	assert.Empty(t, r.expired)
	s.Advance(500)
	assert.Equal(t, []core.SysTime{100}, r.expired)
	assert.Equal(t, core.SysTime(550), s.Now())

	// One-shot: nothing more until re-armed.
	s.Advance(1000)
	assert.Len(t, r.expired, 1)
}

func TestRescheduleFromPreviousExpiry(t *testing.T) {
	s, r := newRecorded(Config{})
	r.onTimer = func() {
		if len(r.expired) < 4 {
			s.UtilTimerReschedule(100)
		}
	}

	s.UtilTimerStart(100)
	s.DelayMicroseconds(130) // late delivery of the first expiry
	s.AdvanceTo(1000)

	assert.Equal(t, []core.SysTime{130, 200, 300, 400}, r.expired)
	assert.Equal(t, []core.SysTime{100, 200, 300, 400}, s.Expiries())
	starts, reschedules, _ := s.TimerStats()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 3, reschedules)
}

func TestRescheduleWhileDisabledStarts(t *testing.T) {
	s, _ := newRecorded(Config{Start: 40})

	s.UtilTimerDisable()
	s.UtilTimerReschedule(10)
	due, armed := s.TimerDue()
	require.True(t, armed)
	assert.Equal(t, core.SysTime(50), due)

	s.UtilTimerDisable()
	s.UtilTimerDisable()
	_, _, disables := s.TimerStats()
	assert.Equal(t, 1, disables)
}

func TestRunUntilIdleStopsAtLimit(t *testing.T) {
	s, r := newRecorded(Config{})
	r.onTimer = func() { s.UtilTimerReschedule(10) }

	s.UtilTimerStart(10)
	s.RunUntilIdle(95)
	assert.Len(t, r.expired, 9)
	assert.Equal(t, core.SysTime(95), s.Now())
}

func TestWatchLines(t *testing.T) {
	s, r := newRecorded(Config{})
	a0, _ := s.Board().PinByName("A0")
	b0, _ := s.Board().PinByName("B0")

	dev := s.Watch(a0, true, core.WatchHighSpeed)
	assert.Equal(t, core.EXTI(0), dev)
	assert.Equal(t, core.DeviceNone, s.Watch(b0, true, core.WatchNone))

	s.SetInput(b0, true)
	assert.Empty(t, r.edges)
	s.SetInput(a0, true)
	s.SetInput(a0, true)
	require.Len(t, r.edges, 1)
	assert.Equal(t, dev, r.edges[0].Device)
	assert.True(t, r.edges[0].Level)
	assert.True(t, s.WatchedPinLevel(dev))

	// Disabling through the wrong pin leaves the line alone.
	s.Watch(b0, false, core.WatchNone)
	_, on := s.WatchFlags(dev)
	assert.True(t, on)
	s.Watch(a0, false, core.WatchNone)
	_, on = s.WatchFlags(dev)
	assert.False(t, on)
}

func TestPullResistors(t *testing.T) {
	s := New(Config{})
	pin, _ := s.Board().PinByName("B12")

	s.SetState(pin, core.StateInputPullUp)
	assert.True(t, s.Value(pin))
	s.SetState(pin, core.StateInputPullDown)
	assert.False(t, s.Value(pin))

	s.SetInput(pin, true)
	assert.True(t, s.Value(pin))
}

func TestOutputHistory(t *testing.T) {
	s := New(Config{})
	pin, _ := s.Board().PinByName("B12")
	s.SetState(pin, core.StateOutput)

	s.SetValue(pin, false)
	s.Advance(10)
	s.SetValue(pin, false)
	s.SetValue(pin, true)
	assert.Equal(t, core.StateOutput|core.PinStateIsOn, s.State(pin))
	assert.Equal(t, []Edge{{0, false}, {10, true}}, s.History(pin))

	s.ClearHistory(pin)
	assert.Empty(t, s.History(pin))
}

func TestAnalogOutput(t *testing.T) {
	s := New(Config{})
	a4, _ := s.Board().PinByName("A4")
	dac, _ := core.ParsePinFunction("DAC_CH1")

	require.NoError(t, s.AnalogOutput(a4, dac, 0.5, 0))
	s.SetOutputValue(dac, 1234)
	out, ok := s.AnalogOutputOf(a4)
	require.True(t, ok)
	assert.Equal(t, uint16(1234), out.Value)
	assert.Equal(t, core.StateAnalog, s.State(a4))

	s.SetState(a4, core.StateOutput)
	_, ok = s.AnalogOutputOf(a4)
	assert.False(t, ok)

	off := New(Config{NoHardwareAnalog: true})
	assert.ErrorIs(t, off.AnalogOutput(a4, dac, 0.5, 0), core.ErrUnsupported)
}

func TestFiniteSleepDeliversTimer(t *testing.T) {
	s, r := newRecorded(Config{})

	s.UtilTimerStart(300)
	require.True(t, s.Sleep(1000))
	assert.Equal(t, []core.SysTime{300}, r.expired)
	assert.Equal(t, core.SysTime(300), s.Now())

	require.True(t, s.Sleep(1000))
	assert.Equal(t, core.SysTime(1000), s.Now())
}

func TestInjectRX(t *testing.T) {
	s, r := newRecorded(Config{})
	s.InjectRX(core.Serial(1), []byte("ok"))
	assert.Equal(t, []byte("ok"), r.rx)
}

func TestI2CWithoutHandlerNACKs(t *testing.T) {
	s := New(Config{})
	assert.ErrorIs(t, s.I2CWrite(core.I2C(1), 0x10, nil, true), core.ErrNotInitialised)

	require.NoError(t, s.SetupPeripheral(core.I2C(1), core.NewI2CInfo()))
	assert.ErrorIs(t, s.I2CWrite(core.I2C(1), 0x10, nil, true), ErrNACK)
}

func TestOtherBoard(t *testing.T) {
	s := New(Config{Board: boards.MustNamed("rpi")})
	assert.Equal(t, "rpi", s.Board().Name)
	_, ok := s.Board().PinByName("GPIO18")
	assert.True(t, ok)
}

func TestRandomNumberSeeded(t *testing.T) {
	a, b := New(Config{Seed: 1}), New(Config{Seed: 1})
	for i := 0; i < 4; i++ {
		assert.Equal(t, a.RandomNumber(), b.RandomNumber())
	}
}

func TestKill(t *testing.T) {
	s, _ := newRecorded(Config{})
	s.UtilTimerStart(10)
	s.Kill()
	assert.True(t, s.Killed())
	_, armed := s.TimerDue()
	assert.False(t, armed)
}

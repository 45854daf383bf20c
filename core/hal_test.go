package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohal/core"
	"gohal/targets/sim"
)

func newTestHAL(t *testing.T, opts ...core.Option) (*core.HAL, *sim.Sim) {
	t.Helper()
	return newTestHALConfig(t, sim.Config{}, opts...)
}

func newTestHALConfig(t *testing.T, cfg sim.Config, opts ...core.Option) (*core.HAL, *sim.Sim) {
	t.Helper()
	s := sim.New(cfg)
	h := core.New(s, opts...)
	h.Init()
	t.Cleanup(h.Reset)
	return h, s
}

func pinNamed(t *testing.T, h *core.HAL, name string) core.Pin {
	t.Helper()
	p, ok := h.Board().PinByName(name)
	require.True(t, ok, "no pin %s", name)
	return p
}

func TestMustHAL(t *testing.T) {
	h, _ := newTestHAL(t)
	core.SetDefault(h)
	defer core.SetDefault(nil)
	assert.Same(t, h, core.MustHAL())

	core.SetDefault(nil)
	assert.Panics(t, func() { core.MustHAL() })
}

func TestInitAppliesPowerOnStates(t *testing.T) {
	h, _ := newTestHAL(t)

	st, err := h.PinState(pinNamed(t, h, "A15"))
	require.NoError(t, err)
	assert.Equal(t, core.StateInputPullDown, st.Mode())
	assert.True(t, h.IsPinStateDefault(pinNamed(t, h, "A15"), core.StateInputPullDown))
	assert.False(t, h.IsPinStateDefault(pinNamed(t, h, "A15"), core.StateInput))
	assert.True(t, h.IsPinStateDefault(pinNamed(t, h, "A11"), core.StateInput))
	assert.True(t, h.IsPinStateDefault(pinNamed(t, h, "A11"), core.StateUndefined))
}

func TestReset(t *testing.T) {
	h, s := newTestHAL(t)
	a0, a11, b12 := pinNamed(t, h, "A0"), pinNamed(t, h, "A11"), pinNamed(t, h, "B12")

	require.NoError(t, h.PinOutput(a11, true))
	_, err := h.Watch(b12, true, core.WatchNone)
	require.NoError(t, err)
	require.NoError(t, h.Setup(core.Serial(1), nil))
	_, err = h.WriteAnalog(a0, 0.5, 100, core.AnalogOutputForceSoftware)
	require.NoError(t, err)
	h.ScheduleFunc(h.Now()+1000, func() {})
	s.SetInput(b12, true)
	require.True(t, h.PendingEvent())

	h.Reset()

	assert.Zero(t, h.PendingTasks())
	_, armed := s.TimerDue()
	assert.False(t, armed)
	assert.False(t, h.SoftPWMRunning(a0))
	assert.False(t, h.IsDeviceInitialised(core.Serial(1)))
	assert.False(t, h.PendingEvent())
	assert.True(t, h.CanWatch(b12))
	assert.Equal(t, core.PinUndefined, h.WatchedPin(core.EXTI(12)))

	for _, p := range []core.Pin{a0, a11, b12} {
		st, err := h.PinState(p)
		require.NoError(t, err)
		assert.Equal(t, core.StateInput, st.Mode(), "pin %d", p)
		fn, err := h.CurrentFunction(p)
		require.NoError(t, err)
		assert.Equal(t, core.PinFunctionNone, fn)
	}
	st, _ := h.PinState(pinNamed(t, h, "A15"))
	assert.Equal(t, core.StateInputPullDown, st.Mode())
}

func TestKill(t *testing.T) {
	s := sim.New(sim.Config{})
	h := core.New(s)
	h.Init()
	h.Kill()
	assert.True(t, s.Killed())
}

func TestInterruptsOffNests(t *testing.T) {
	h, _ := newTestHAL(t)

	h.InterruptsOff()
	h.InterruptsOff()
	h.SetDigital(pinNamed(t, h, "A11"), true)
	h.InterruptsOn()
	h.InterruptsOn()
	// Unbalanced On is ignored.
	h.InterruptsOn()

	// Would deadlock if the lock were still held.
	assert.Zero(t, h.PendingTasks())
}

func TestErrorsWrapSentinels(t *testing.T) {
	h, _ := newTestHAL(t)

	err := h.SetPinState(13, core.StateOutput)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPin)
	var pe *core.PinError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, core.Pin(13), pe.Pin)
	assert.Equal(t, "set state pin 13: invalid pin", err.Error())

	err = h.Kick(core.SPI(1))
	var de *core.DeviceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, core.SPI(1), de.Device)
	assert.Equal(t, "kick SPI1: device not initialised", err.Error())
}

func TestSystemInfo(t *testing.T) {
	h, _ := newTestHALConfig(t, sim.Config{Serial: []byte("ABC"), USBConnected: true, Seed: 7})

	assert.Equal(t, []byte("ABC"), h.SerialNumber())
	assert.True(t, h.IsUSBConnected())
	assert.Equal(t, uint32(72000000), h.SystemClock())
	assert.Equal(t, uint32(48000000), h.SetSystemClock(48000000))
	assert.Equal(t, uint32(48000000), h.SystemClock())
	assert.InDelta(t, 3.3, h.VRef(), 1e-9)
	assert.InDelta(t, 25, h.Temperature(), 1e-9)

	other := sim.New(sim.Config{Seed: 7})
	assert.Equal(t, other.RandomNumber(), h.RandomNumber())
}

package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohal/core"
	"gohal/targets/sim"
)

func TestPinStateRoundTrip(t *testing.T) {
	h, _ := newTestHAL(t)
	pin := pinNamed(t, h, "A11")

	states := []core.PinState{
		core.StateOutput,
		core.StateOutputOpenDrain,
		core.StateOutputOpenDrainPullUp,
		core.StateInput,
		core.StateInputPullUp,
		core.StateInputPullDown,
		core.StateAnalog,
		core.StateAFOutput,
		core.StateAFOpenDrain,
	}
	for _, want := range states {
		require.NoError(t, h.SetPinState(pin, want))
		got, err := h.PinState(pin)
		require.NoError(t, err)
		assert.Equal(t, want, got.Mode(), want.String())
	}
}

func TestPinStateRejects(t *testing.T) {
	h, _ := newTestHAL(t)

	for _, p := range []core.Pin{13, 14, 32, 200, core.PinUndefined} {
		assert.ErrorIs(t, h.SetPinState(p, core.StateOutput), core.ErrInvalidPin, "pin %d", p)
		_, err := h.PinState(p)
		assert.ErrorIs(t, err, core.ErrInvalidPin)
		_, err = h.PinInfo(p)
		assert.ErrorIs(t, err, core.ErrInvalidPin)
		assert.False(t, h.IsPinStateDefault(p, core.StateInput))
	}
	assert.ErrorIs(t, h.SetPinState(pinNamed(t, h, "A11"), core.PinState(0x0C)), core.ErrInvalidState)
}

func TestPinOutputAndToggle(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B12")

	require.NoError(t, h.PinOutput(pin, true))
	st, _ := h.PinState(pin)
	assert.Equal(t, core.StateOutput, st.Mode())
	assert.True(t, st.IsOn())
	assert.True(t, s.Level(pin))
	assert.True(t, h.Digital(pin))

	v, err := h.PinToggle(pin)
	require.NoError(t, err)
	assert.False(t, v)
	assert.False(t, s.Level(pin))
	v, _ = h.PinToggle(pin)
	assert.True(t, v)

	// An open-drain output stays open drain.
	require.NoError(t, h.SetPinState(pin, core.StateOutputOpenDrain))
	require.NoError(t, h.PinOutput(pin, false))
	st, _ = h.PinState(pin)
	assert.Equal(t, core.StateOutputOpenDrain, st.Mode())
	assert.False(t, st.IsOn())
}

func TestPinInput(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B12")

	s.SetInput(pin, true)
	v, err := h.PinInput(pin)
	require.NoError(t, err)
	assert.True(t, v)

	// A pull-up input left floating reads high.
	up := pinNamed(t, h, "B13")
	require.NoError(t, h.SetPinState(up, core.StateInputPullUp))
	v, _ = h.PinInput(up)
	assert.True(t, v)
	st, _ := h.PinState(up)
	assert.Equal(t, core.StateInputPullUp, st.Mode())

	// A configured output is read back, not reconfigured.
	out := pinNamed(t, h, "B14")
	require.NoError(t, h.PinOutput(out, true))
	v, _ = h.PinInput(out)
	assert.True(t, v)
	st, _ = h.PinState(out)
	assert.Equal(t, core.StateOutput, st.Mode())
}

func TestPinOutputAtTime(t *testing.T) {
	h, s := newTestHAL(t)
	a11, a12 := pinNamed(t, h, "A11"), pinNamed(t, h, "A12")
	at := h.Now() + 1000

	require.NoError(t, h.PinOutputAtTime(at, []core.Pin{a11, a12}, true))
	st, _ := h.PinState(a11)
	assert.Equal(t, core.StateOutput, st.Mode())

	s.Advance(999)
	assert.False(t, s.Level(a11))
	assert.False(t, s.Level(a12))

	s.Advance(1)
	assert.True(t, s.Level(a11))
	assert.True(t, s.Level(a12))
	assert.Equal(t, []sim.Edge{{Time: at, Level: true}}, s.History(a11))

	assert.ErrorIs(t, h.PinOutputAtTime(at, []core.Pin{a11, 13}, false), core.ErrInvalidPin)
	assert.Zero(t, h.PendingTasks())
}

func TestPinOutputAtTimeReleasesRemovedPins(t *testing.T) {
	h, s := newTestHAL(t)
	a11, a12 := pinNamed(t, h, "A11"), pinNamed(t, h, "A12")
	a9 := pinNamed(t, h, "A9")
	at := h.Now() + 1000

	require.NoError(t, h.PinOutputAtTime(at, []core.Pin{a11, a12, a9}, true))
	assert.Equal(t, 1, h.PendingTasks())

	// Serial1 takes A9; the timed write must not reach it.
	require.NoError(t, h.Setup(core.Serial(1), nil))
	assert.Equal(t, 1, h.PendingTasks())
	assert.Zero(t, h.RemovePinTasks(a11))
	assert.Equal(t, 1, h.PendingTasks())

	s.Advance(1000)
	assert.False(t, s.Level(a11))
	assert.True(t, s.Level(a12))
	assert.Empty(t, s.History(a9))
	fn, _ := h.CurrentFunction(a9)
	assert.Equal(t, core.Serial(1), fn.Device())

	// The task goes once every pin it drives is taken away.
	require.NoError(t, h.PinOutputAtTime(at+1000, []core.Pin{a11, a12}, false))
	assert.Zero(t, h.RemovePinTasks(a11))
	assert.Equal(t, 1, h.RemovePinTasks(a12))
	assert.Zero(t, h.PendingTasks())
}

func TestDigitalPulse(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B10")
	t0 := h.Now()

	require.NoError(t, h.DigitalPulse(pin, true, []float64{1, 2, 3}))
	assert.True(t, s.Level(pin))
	s.RunUntilIdle(10000)

	assert.Equal(t, []sim.Edge{
		{Time: t0, Level: true},
		{Time: t0 + 1000, Level: false},
		{Time: t0 + 3000, Level: true},
		{Time: t0 + 6000, Level: false},
	}, s.History(pin))
	assert.Zero(t, h.PendingTasks())
}

func TestDigitalPulseQueuesBehindRunningPulse(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B10")
	t0 := h.Now()

	require.NoError(t, h.DigitalPulse(pin, true, []float64{1}))
	require.NoError(t, h.DigitalPulse(pin, true, []float64{1}))
	s.RunUntilIdle(10000)

	assert.Equal(t, []sim.Edge{
		{Time: t0, Level: true},
		{Time: t0 + 1000, Level: false},
		{Time: t0 + 1000, Level: true},
		{Time: t0 + 2000, Level: false},
	}, s.History(pin))
}

func TestDigitalPulseEmpty(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B10")

	require.NoError(t, h.DigitalPulse(pin, true, nil))
	assert.Empty(t, s.History(pin))
	assert.ErrorIs(t, h.DigitalPulse(13, true, []float64{1}), core.ErrInvalidPin)
}

func TestPinReport(t *testing.T) {
	h, _ := newTestHAL(t)
	a0 := pinNamed(t, h, "A0")

	fn, err := h.WriteAnalog(a0, 0.5, 0, core.AnalogOutputNone)
	require.NoError(t, err)

	r, err := h.PinReport(a0)
	require.NoError(t, err)
	assert.Equal(t, "A0", r.Name)
	assert.Equal(t, byte('A'), r.Port)
	assert.Equal(t, uint8(0), r.Num)
	assert.Equal(t, 0, r.AnalogChannel)
	assert.Equal(t, fn, r.Current)
	assert.Equal(t, core.StateAFOutput, r.State)
	assert.Contains(t, r.Functions, fn)

	_, err = h.PinReport(14)
	assert.ErrorIs(t, err, core.ErrInvalidPin)
}

package core_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohal/core"
	"gohal/targets/sim"
)

// sleepForever runs h.Sleep(SleepForever) on its own goroutine and waits
// until the simulator has entered the sleep.
func sleepForever(t *testing.T, h *core.HAL, s *sim.Sim) <-chan bool {
	t.Helper()
	sleeps, _, _ := s.SleepStats()
	done := make(chan bool, 1)
	go func() { done <- h.Sleep(core.SleepForever) }()
	require.Eventually(t, func() bool {
		n, _, _ := s.SleepStats()
		return n == sleeps+1
	}, time.Second, time.Millisecond)
	return done
}

func TestSleepForeverArmsNoTimer(t *testing.T) {
	h, s := newTestHAL(t)
	before := h.Now()

	done := sleepForever(t, h, s)
	select {
	case <-done:
		t.Fatal("sleep returned without an interrupt")
	case <-time.After(20 * time.Millisecond):
	}
	_, armed := s.TimerDue()
	assert.False(t, armed)

	s.Interrupt(5)
	assert.True(t, <-done)

	_, armedWake, until := s.SleepStats()
	assert.False(t, armedWake)
	assert.Equal(t, core.SleepForever, until)
	assert.Greater(t, h.Now(), before)
}

func TestSleepForeverIgnoresHandledEdge(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B12")
	_, err := h.Watch(pin, true, core.WatchNone)
	require.NoError(t, err)

	s.SetInput(pin, true)
	assert.Equal(t, 1, h.Idle(func(core.IOEvent) {}))

	before := h.Now()
	done := sleepForever(t, h, s)
	select {
	case <-done:
		t.Fatalf("sleep returned for an edge already handled; now %d", h.Now())
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, before, h.Now())

	s.Advance(3)
	s.SetInput(pin, false)
	assert.True(t, <-done)
	assert.True(t, h.PendingEvent())
	assert.Greater(t, h.Now(), before)
}

func TestSleepForeverWokenByEdge(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B12")
	_, err := h.Watch(pin, true, core.WatchNone)
	require.NoError(t, err)

	done := make(chan bool)
	go func() { done <- h.Sleep(core.SleepForever) }()
	require.Eventually(t, func() bool {
		sleeps, _, _ := s.SleepStats()
		return sleeps == 1
	}, time.Second, time.Millisecond)
	s.Advance(10)
	s.SetInput(pin, true)
	assert.True(t, <-done)
	assert.True(t, h.PendingEvent())
}

func TestSleepUntil(t *testing.T) {
	h, s := newTestHAL(t)
	t0 := h.Now()

	require.True(t, h.Sleep(t0+1000))
	assert.Equal(t, t0+1000, h.Now())
	_, armedWake, _ := s.SleepStats()
	assert.True(t, armedWake)

	// A timer expiry before the wake time ends the sleep early.
	ran := false
	h.ScheduleFunc(t0+1300, func() { ran = true })
	require.True(t, h.Sleep(t0+5000))
	assert.True(t, ran)
	assert.Equal(t, t0+1300, h.Now())
}

func TestSleepRefused(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B12")
	s.Advance(1000)

	assert.False(t, h.Sleep(h.Now()))
	assert.False(t, h.Sleep(h.Now()-1))

	_, err := h.Watch(pin, true, core.WatchNone)
	require.NoError(t, err)
	s.SetInput(pin, true)
	assert.False(t, h.Sleep(h.Now()+100))
	h.Idle(func(core.IOEvent) {})
	assert.True(t, h.Sleep(h.Now()+100))

	require.NoError(t, h.Setup(core.Serial(1), nil))
	s.HoldTX(core.Serial(1), true)
	require.NoError(t, h.USARTWrite(core.Serial(1), []byte("zz")))
	assert.False(t, h.Sleep(h.Now()+100))
	s.HoldTX(core.Serial(1), false)
	assert.True(t, h.Sleep(h.Now()+100))

	sleeps, _, _ := s.SleepStats()
	assert.Equal(t, 2, sleeps)
}

func TestWatchdog(t *testing.T) {
	h, s := newTestHAL(t)

	for _, bad := range []float64{0, -1, math.NaN(), 3601} {
		assert.ErrorIs(t, h.EnableWatchdog(bad), core.ErrInvalidTimeout, "timeout %v", bad)
	}
	assert.False(t, s.WatchdogExpired())

	require.NoError(t, h.EnableWatchdog(2))
	assert.Equal(t, 1, s.WatchdogKicks())

	s.Advance(h.TimeFromMillis(1500))
	h.KickWatchdog()
	s.Advance(h.TimeFromMillis(1500))
	assert.False(t, s.WatchdogExpired())

	s.Advance(h.TimeFromMillis(1000))
	assert.True(t, s.WatchdogExpired())
	assert.Equal(t, 2, s.WatchdogKicks())
}

func TestSoftWatchdog(t *testing.T) {
	notified := 0
	h, s := newTestHAL(t, core.WithSoftWatchdogWindow(500), core.WithOnEvent(func() { notified++ }))

	// Never kicked: the request goes through.
	assert.True(t, h.RequestInterrupt())
	assert.True(t, h.IsInterrupted())
	assert.True(t, h.PendingEvent())
	assert.Equal(t, 1, notified)
	h.ClearInterrupt()
	h.Idle(func(core.IOEvent) {})
	assert.False(t, h.IsInterrupted())

	s.Advance(1000)
	h.KickSoftWatchdog()
	s.Advance(h.TimeFromMillis(400))
	assert.False(t, h.RequestInterrupt())
	assert.False(t, h.IsInterrupted())

	s.Advance(h.TimeFromMillis(200))
	assert.True(t, h.RequestInterrupt())
	assert.True(t, h.IsInterrupted())
}

func TestSoftWatchdogKickedAtBoot(t *testing.T) {
	h, s := newTestHAL(t, core.WithSoftWatchdogWindow(500))
	require.Zero(t, h.Now())

	h.KickSoftWatchdog()
	s.Advance(h.TimeFromMillis(100))
	assert.False(t, h.RequestInterrupt())
	assert.False(t, h.IsInterrupted())

	s.Advance(h.TimeFromMillis(400))
	assert.True(t, h.RequestInterrupt())
}

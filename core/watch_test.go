package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohal/core"
)

func TestWatchHandles(t *testing.T) {
	h, s := newTestHAL(t)
	a0, b0 := pinNamed(t, h, "A0"), pinNamed(t, h, "B0")

	dev, err := h.Watch(a0, true, core.WatchHighSpeed)
	require.NoError(t, err)
	assert.Equal(t, core.EXTI(0), dev)
	assert.True(t, h.IsEventForPin(dev, a0))
	assert.False(t, h.IsEventForPin(dev, b0))
	assert.Equal(t, a0, h.WatchedPin(dev))
	flags, on := s.WatchFlags(dev)
	assert.True(t, on)
	assert.Equal(t, core.WatchHighSpeed, flags)

	again, err := h.Watch(a0, true, core.WatchNone)
	require.NoError(t, err)
	assert.Equal(t, dev, again)

	// A0 and B0 share line 0.
	assert.False(t, h.CanWatch(b0))
	_, err = h.Watch(b0, true, core.WatchNone)
	assert.ErrorIs(t, err, core.ErrCannotWatch)

	off, err := h.Watch(a0, false, core.WatchNone)
	require.NoError(t, err)
	assert.Equal(t, core.DeviceNone, off)
	assert.False(t, h.IsEventForPin(dev, a0))
	assert.True(t, h.CanWatch(b0))

	dev, err = h.Watch(b0, true, core.WatchNone)
	require.NoError(t, err)
	assert.True(t, h.IsEventForPin(dev, b0))

	_, err = h.Watch(13, true, core.WatchNone)
	assert.ErrorIs(t, err, core.ErrInvalidPin)
	assert.False(t, h.IsEventForPin(core.Serial(1), b0))
	assert.False(t, h.IsEventForPin(dev, core.PinUndefined))
}

func TestWatchPeripheralPin(t *testing.T) {
	h, _ := newTestHAL(t)
	require.NoError(t, h.Setup(core.Serial(1), nil))

	a9 := pinNamed(t, h, "A9")
	assert.False(t, h.CanWatch(a9))
	_, err := h.Watch(a9, true, core.WatchNone)
	assert.ErrorIs(t, err, core.ErrCannotWatch)
}

func TestWatchEdgesQueued(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B12")
	dev, err := h.Watch(pin, true, core.WatchNone)
	require.NoError(t, err)

	s.SetInput(pin, true)
	s.Advance(100)
	s.SetInput(pin, false)
	// No change, no edge.
	s.SetInput(pin, false)

	assert.True(t, h.PendingEvent())
	assert.False(t, h.WatchedPinLevel(dev))

	var got []core.IOEvent
	n := h.Idle(func(ev core.IOEvent) { got = append(got, ev) })
	assert.Equal(t, 2, n)
	require.Len(t, got, 2)
	assert.Equal(t, dev, got[0].Device)
	assert.True(t, got[0].Level)
	assert.False(t, got[1].Level)
	assert.Equal(t, got[0].Time+100, got[1].Time)
	assert.False(t, h.PendingEvent())

	s.SetInput(pin, true)
	assert.True(t, h.WatchedPinLevel(dev))
}

func TestWatchNotificationCoalesced(t *testing.T) {
	notified := 0
	h, s := newTestHAL(t, core.WithOnEvent(func() { notified++ }))
	pin := pinNamed(t, h, "B12")
	_, err := h.Watch(pin, true, core.WatchNone)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s.SetInput(pin, i%2 == 0)
	}
	assert.Equal(t, 1, notified)

	assert.Equal(t, 5, h.Idle(func(core.IOEvent) {}))
	s.SetInput(pin, true)
	assert.Equal(t, 2, notified)
}

func TestWatchEventOverflow(t *testing.T) {
	h, s := newTestHAL(t, core.WithEventQueueSize(2))
	pin := pinNamed(t, h, "B12")
	dev, err := h.Watch(pin, true, core.WatchNone)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s.SetInput(pin, i%2 == 0)
	}

	var levels []bool
	h.Idle(func(ev core.IOEvent) {
		assert.Equal(t, dev, ev.Device)
		levels = append(levels, ev.Level)
	})
	// The oldest events survive.
	assert.Equal(t, []bool{true, false}, levels)
	assert.Equal(t, uint32(3), h.DroppedEvents())
}

func TestWatchUnwatchedPinQueuesNothing(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B12")

	s.SetInput(pin, true)
	assert.False(t, h.PendingEvent())
	assert.Zero(t, h.Idle(func(core.IOEvent) {}))
}

func TestWatchEdgeAfterUnwatchDropped(t *testing.T) {
	h, _ := newTestHAL(t)
	a0, b0 := pinNamed(t, h, "A0"), pinNamed(t, h, "B0")

	dev, err := h.Watch(a0, true, core.WatchNone)
	require.NoError(t, err)
	_, err = h.Watch(a0, false, core.WatchNone)
	require.NoError(t, err)

	// An edge that was already in flight when the line was released.
	h.WatchEdge(dev, true, h.Now())
	assert.False(t, h.PendingEvent())
	assert.Zero(t, h.Idle(func(core.IOEvent) {}))

	// Once B0 owns the line its edges are delivered again.
	dev, err = h.Watch(b0, true, core.WatchNone)
	require.NoError(t, err)
	h.WatchEdge(dev, true, h.Now())
	var got []core.IOEvent
	h.Idle(func(ev core.IOEvent) { got = append(got, ev) })
	require.Len(t, got, 1)
	assert.True(t, h.IsEventForPin(got[0].Device, b0))

	h.WatchEdge(core.Serial(1), true, h.Now())
	assert.False(t, h.PendingEvent())
}

func TestWait(t *testing.T) {
	h, s := newTestHAL(t)
	pin := pinNamed(t, h, "B12")
	_, err := h.Watch(pin, true, core.WatchNone)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Wait(ctx), context.Canceled)

	s.SetInput(pin, true)
	assert.NoError(t, h.Wait(ctx))

	done := make(chan error)
	h.Idle(func(core.IOEvent) {})
	go func() { done <- h.Wait(context.Background()) }()
	s.SetInput(pin, false)
	assert.NoError(t, <-done)
}

func TestUSARTReceiveEvents(t *testing.T) {
	h, s := newTestHAL(t)
	require.NoError(t, h.Setup(core.Serial(1), nil))

	data := []byte("hello, world")
	s.InjectRX(core.Serial(1), data)

	var got []byte
	chunks := h.Idle(func(ev core.IOEvent) {
		assert.Equal(t, core.Serial(1), ev.Device)
		got = append(got, ev.Bytes()...)
	})
	assert.Equal(t, 2, chunks)
	assert.Equal(t, data, got)
}

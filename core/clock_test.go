package core_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"gohal/core"
	"gohal/targets/sim"
)

func TestTimeFromMillis(t *testing.T) {
	h, _ := newTestHAL(t)

	tests := []struct {
		ms   float64
		want core.SysTime
	}{
		{1, 1000},
		{1.5, 1500},
		{0.0004, 0},
		{0.0006, 1},
		{0, 0},
		{-5, 0},
		{math.NaN(), 0},
		{math.Inf(-1), 0},
		{math.Inf(1), core.SleepForever - 1},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, h.TimeFromMillis(tc.ms), "ms=%v", tc.ms)
	}
}

func TestTimeConversionRoundTrip(t *testing.T) {
	for _, tps := range []uint64{1000000, 32768, 12000000} {
		h, _ := newTestHALConfig(t, sim.Config{TicksPerSecond: tps})
		assert.Equal(t, tps, h.TicksPerSecond())
		tickMs := 1000 / float64(tps)

		for _, ms := range []float64{0.001, 0.5, 1, 12.345, 1000, 86400000} {
			back := h.MillisFromTime(h.TimeFromMillis(ms))
			assert.InDelta(t, ms, back, tickMs, "tps=%d ms=%v", tps, ms)
		}
		for _, ticks := range []core.SysTime{1, 7, 1000, 123456789} {
			back := h.TimeFromMillis(h.MillisFromTime(ticks))
			assert.InDelta(t, float64(ticks), float64(back), 1, "tps=%d ticks=%d", tps, ticks)
		}
	}
}

func TestTimeFromMicros(t *testing.T) {
	h, _ := newTestHAL(t)
	assert.Equal(t, core.SysTime(1500), h.TimeFromMicros(1500))

	rtc, _ := newTestHALConfig(t, sim.Config{TicksPerSecond: 32768})
	assert.Equal(t, core.SysTime(32768), rtc.TimeFromMicros(1000000))
	assert.Equal(t, core.SysTime(33), rtc.TimeFromMicros(1000))
}

func TestSetNow(t *testing.T) {
	h, _ := newTestHALConfig(t, sim.Config{Start: 100})
	assert.Equal(t, core.SysTime(100), h.Now())

	h.SetNow(50000)
	assert.Equal(t, core.SysTime(50000), h.Now())

	found := false
	for _, ev := range core.TimingEvents() {
		if ev.EventType == core.EvtSetTime && ev.Value1 == 50000 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDelayMicrosecondsClamps(t *testing.T) {
	h, _ := newTestHAL(t)

	start := h.Now()
	h.DelayMicroseconds(250)
	assert.Equal(t, start+250, h.Now())

	h.DelayMicroseconds(5000)
	assert.Equal(t, start+1250, h.Now())
}

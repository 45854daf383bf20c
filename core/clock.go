package core

// SysTime is a tick count since boot. The tick rate is backend-defined; see
// ClockDriver.TicksPerSecond.
type SysTime uint64

// SleepForever asks Sleep not to arm any wake-up timer.
const SleepForever SysTime = ^SysTime(0)

// maxMillis is the largest millisecond value converted without saturating.
const maxMillis = 1.8e19

// maxDelayMicroseconds bounds DelayMicroseconds busy-waits.
const maxDelayMicroseconds = 1000

// Now returns the current time. It only moves forward unless SetNow is used.
func (h *HAL) Now() SysTime {
	return h.b.Now()
}

// SetNow overwrites the current time. Tasks already queued keep their old
// due times, so anything scheduled before the jump fires early or late.
func (h *HAL) SetNow(t SysTime) {
	s := disableInterrupts()
	RecordTiming(EvtSetTime, 0, h.b.Now(), uint64(t), 0)
	h.b.SetNow(t)
	restoreInterrupts(s)
}

// TicksPerSecond reports the backend clock rate.
func (h *HAL) TicksPerSecond() uint64 {
	return h.tps
}

// TimeFromMillis converts milliseconds to ticks, rounding to nearest.
// Negative and NaN inputs convert to 0; huge inputs saturate.
func (h *HAL) TimeFromMillis(ms float64) SysTime {
	if !(ms > 0) {
		return 0
	}
	ticks := ms*float64(h.tps)/1000 + 0.5
	if ticks >= maxMillis {
		return SleepForever - 1
	}
	return SysTime(ticks)
}

// MillisFromTime converts ticks to milliseconds.
func (h *HAL) MillisFromTime(t SysTime) float64 {
	return float64(t) * 1000 / float64(h.tps)
}

// TimeFromMicros converts microseconds to ticks, rounding to nearest.
func (h *HAL) TimeFromMicros(us uint64) SysTime {
	return SysTime((us*h.tps + 500000) / 1000000)
}

// DelayMicroseconds busy-waits. Delays above one millisecond are clamped;
// longer waits belong on the utility timer.
func (h *HAL) DelayMicroseconds(us uint32) {
	if us > maxDelayMicroseconds {
		us = maxDelayMicroseconds
	}
	h.b.DelayMicroseconds(us)
}

package core

// ClockDriver is the backend's time base.
type ClockDriver interface {
	// Now returns ticks since boot. Only hardware or interrupt context
	// advances it.
	Now() SysTime

	// SetNow overwrites the tick counter.
	SetNow(t SysTime)

	// TicksPerSecond is fixed for the lifetime of the backend.
	TicksPerSecond() uint64

	// DelayMicroseconds busy-waits.
	DelayMicroseconds(us uint32)
}

// UtilTimer is the single-shot hardware timer that drives the task queue.
// When it expires the backend calls IRQHandler.UtilTimerExpired.
type UtilTimer interface {
	// UtilTimerStart arms the timer to expire period ticks from now.
	// A zero period is treated as one tick.
	UtilTimerStart(period SysTime)

	// UtilTimerReschedule arms the timer to expire period ticks after the
	// previous intended expiry, so that periodic work does not accumulate
	// handler latency. On a disabled timer it behaves like UtilTimerStart.
	UtilTimerReschedule(period SysTime)

	// UtilTimerDisable stops the timer. Idempotent.
	UtilTimerDisable()

	// TimerDue reports the intended expiry of the pending arm. It is false
	// once that arm has fired or the timer was disabled, and in particular
	// while the backend is calling UtilTimerExpired for it.
	TimerDue() (SysTime, bool)
}

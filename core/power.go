package core

import "math"

// maxWatchdogTimeout is the longest watchdog timeout accepted, in seconds.
const maxWatchdogTimeout = 3600

// Sleep lets the device idle until the given time or the next interrupt.
// It refuses, returning false, while events are waiting to be handled,
// while a USART still has bytes to send, or when until is not in the
// future. SleepForever arms no wake-up timer.
func (h *HAL) Sleep(until SysTime) bool {
	if h.pending.Load() || h.TXPending() {
		return false
	}
	if until != SleepForever && until <= h.b.Now() {
		return false
	}
	return h.b.Sleep(until)
}

// EnableWatchdog starts the hardware watchdog with a timeout in seconds and
// kicks it once.
func (h *HAL) EnableWatchdog(timeout float64) error {
	if math.IsNaN(timeout) || timeout <= 0 || timeout > maxWatchdogTimeout {
		return ErrInvalidTimeout
	}
	if err := h.b.EnableWatchdog(timeout); err != nil {
		return err
	}
	h.b.KickWatchdog()
	return nil
}

// KickWatchdog resets the hardware watchdog countdown.
func (h *HAL) KickWatchdog() {
	h.b.KickWatchdog()
}

// KickSoftWatchdog records that the runtime is making progress.
// The kick time is stored plus one so that zero means never kicked.
func (h *HAL) KickSoftWatchdog() {
	h.softWatchdogKick.Store(uint64(h.b.Now()) + 1)
}

// RequestInterrupt asks the runtime to abort what it is doing. The request
// is ignored, and false returned, while the soft watchdog was kicked within
// the configured window: a responsive runtime does not need interrupting.
func (h *HAL) RequestInterrupt() bool {
	if k := h.softWatchdogKick.Load(); k != 0 {
		if h.MillisFromTime(h.b.Now()-SysTime(k-1)) < h.softWatchdogWindow {
			return false
		}
	}
	h.interruptRequested.Store(true)
	h.signal()
	return true
}

// IsInterrupted reports whether an abort was requested.
func (h *HAL) IsInterrupted() bool {
	return h.interruptRequested.Load()
}

// ClearInterrupt acknowledges an abort request.
func (h *HAL) ClearInterrupt() {
	h.interruptRequested.Store(false)
}

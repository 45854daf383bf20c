package core

// PowerDriver covers low-power sleep and the hardware watchdog.
type PowerDriver interface {
	// Sleep enters the lowest practical power state until the given time
	// or the next interrupt. SleepForever arms no wake-up timer. It
	// reports whether the device actually slept.
	Sleep(until SysTime) bool

	// EnableWatchdog starts the hardware watchdog. Once started it cannot
	// be stopped.
	EnableWatchdog(timeout float64) error

	// KickWatchdog resets the watchdog countdown.
	KickWatchdog()
}

// SystemInfo exposes device identity and housekeeping sensors.
type SystemInfo interface {
	SerialNumber() []byte
	IsUSBConnected() bool
	RandomNumber() uint32
	Temperature() float64 // degrees C, NaN when unavailable
	VRef() float64        // volts, NaN when unavailable
	SystemClock() uint32  // Hz
	// SetSystemClock requests a new core clock and returns the rate
	// actually applied, or 0 when unsupported.
	SetSystemClock(hz uint32) uint32
}

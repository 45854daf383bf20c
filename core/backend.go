package core

// Backend is everything a target implements. The HAL validates and wraps
// it; backends themselves do no argument checking.
type Backend interface {
	ClockDriver
	GPIODriver
	AnalogDriver
	WatchDriver
	UtilTimer
	PowerDriver
	PeripheralDriver
	SystemInfo

	// Board returns the capability table of the device.
	Board() *Board

	// Attach registers the interrupt entry points. Called once by New
	// before any other method.
	Attach(h IRQHandler)

	// Kill stops all hardware activity: timers, watches and peripherals.
	Kill()
}

// IRQHandler is implemented by HAL and called by backends from interrupt
// context (or the goroutine standing in for it).
type IRQHandler interface {
	// WatchEdge reports an edge on a watched pin.
	WatchEdge(dev Device, level bool, at SysTime)

	// UtilTimerExpired is called when the utility timer fires.
	UtilTimerExpired()

	// PushRX queues bytes received by a USART.
	PushRX(dev Device, data []byte)

	// TakeTX moves up to len(buf) queued transmit bytes into buf.
	TakeTX(dev Device, buf []byte) int

	// PendingEvent reports whether events are waiting for the main loop.
	// Backends check it after clearing their wake latch in Sleep.
	PendingEvent() bool
}

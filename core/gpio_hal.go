package core

// GPIODriver is the unchecked digital I/O surface of a backend. Callers
// guarantee the pin is valid; implementations do no validation and must be
// safe to call from interrupt context.
type GPIODriver interface {
	// SetValue drives an output pin high (true) or low (false).
	SetValue(pin Pin, value bool)

	// Value reads the pin level. For outputs this is the driven level.
	Value(pin Pin) bool

	// SetState reconfigures the pin.
	SetState(pin Pin, state PinState)

	// State returns the configured mode. PinStateIsOn is set for outputs
	// currently driven high.
	State(pin Pin) PinState
}

// WatchDriver routes pin edges to interrupt lines. Every edge on a watched
// pin is delivered to IRQHandler.WatchEdge with the line's Device.
type WatchDriver interface {
	// CanWatch reports whether the hardware can raise edge interrupts on
	// the pin at all.
	CanWatch(pin Pin) bool

	// Watch enables or disables edge interrupts. Enabling returns the
	// Device edges will be reported on, or DeviceNone on failure.
	Watch(pin Pin, enable bool, flags WatchFlags) Device

	// WatchedPinLevel reads the current level of the pin behind dev.
	WatchedPinLevel(dev Device) bool
}

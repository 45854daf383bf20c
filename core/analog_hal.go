package core

// AnalogDriver is the backend's ADC, DAC and hardware PWM surface.
type AnalogDriver interface {
	// Analog samples the pin and returns a value in [0, 1].
	Analog(pin Pin) float64

	// AnalogFast samples without reconfiguring the pin, scaled to 16 bits.
	AnalogFast(pin Pin) uint16

	// AnalogOutput starts hardware output on pin through fn, which is a
	// DAC or timer channel taken from the board table. freq is in Hz and
	// ignored for DACs.
	AnalogOutput(pin Pin, fn PinFunction, value float64, freq float64) error

	// SetOutputValue updates the duty (or DAC level) of a running hardware
	// output, 0-65535. Safe from interrupt context.
	SetOutputValue(fn PinFunction, value uint16)
}

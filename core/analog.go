package core

import (
	"errors"
	"math"
)

// Default output frequencies when WriteAnalog is given freq <= 0.
const (
	DefaultPWMFrequency     = 1000.0 // Hz, hardware timers
	DefaultSoftPWMFrequency = 50.0   // Hz, software PWM
)

// ReadAnalogFast samples pin without validation or state changes, scaled to
// 16 bits.
func (h *HAL) ReadAnalogFast(pin Pin) uint16 {
	return h.b.AnalogFast(pin)
}

// ReadAnalog samples pin and returns a value in [0, 1]. A pin still in its
// power-on state is switched to analog first.
func (h *HAL) ReadAnalog(pin Pin) (float64, error) {
	info := h.board.Pin(pin)
	if info == nil {
		return 0, pinErr("analog read", pin, ErrInvalidPin)
	}
	if !info.HasAnalog() {
		return 0, pinErr("analog read", pin, ErrNoAnalogInput)
	}
	if h.funcs[pin].IsPeripheral() {
		return 0, pinErr("analog read", pin, ErrPinInUse)
	}
	state := h.b.State(pin).Mode()
	if state != StateAnalog && h.IsPinStateDefault(pin, state) {
		if err := h.SetPinState(pin, StateAnalog); err != nil {
			return 0, err
		}
	}
	return clamp01(h.b.Analog(pin)), nil
}

// WriteAnalog produces value (0-1) on pin and returns the function used.
// A DAC is preferred when freq <= 0, then a free hardware timer channel,
// then, if flags allow it, software PWM driven by the utility timer.
func (h *HAL) WriteAnalog(pin Pin, value, freq float64, flags AnalogOutputFlags) (PinFunction, error) {
	info := h.board.Pin(pin)
	if info == nil {
		return PinFunctionNone, pinErr("analog write", pin, ErrInvalidPin)
	}
	if h.funcs[pin].IsPeripheral() {
		return PinFunctionNone, pinErr("analog write", pin, ErrPinInUse)
	}
	value = clamp01(value)
	h.stopSoftPWM(pin)

	if flags&AnalogOutputForceSoftware == 0 {
		if fn := h.pickAnalogHardware(pin, info, freq); fn != PinFunctionNone {
			hwFreq := freq
			if hwFreq <= 0 && fn.IsTimer() {
				hwFreq = DefaultPWMFrequency
			}
			err := h.b.AnalogOutput(pin, fn, value, hwFreq)
			if err == nil {
				h.funcs[pin] = fn
				return fn, nil
			}
			if !errors.Is(err, ErrUnsupported) {
				return PinFunctionNone, pinErr("analog write", pin, err)
			}
		}
	}

	if flags&(AnalogOutputAllowSoftware|AnalogOutputForceSoftware) == 0 {
		return PinFunctionNone, pinErr("analog write", pin, ErrNoAnalogOutput)
	}
	if freq <= 0 {
		freq = DefaultSoftPWMFrequency
	}
	return h.startSoftPWM(pin, value, freq)
}

// pickAnalogHardware chooses a DAC channel (only when no frequency was
// asked for) or a timer channel no other pin is using.
func (h *HAL) pickAnalogHardware(pin Pin, info *PinInfo, freq float64) PinFunction {
	if freq <= 0 {
		for _, f := range info.Functions {
			if f.IsDAC() {
				return f
			}
		}
	}
	for _, f := range info.Functions {
		if f.IsTimer() && !h.timerChannelBusy(f, pin) {
			return f
		}
	}
	return PinFunctionNone
}

func (h *HAL) timerChannelBusy(f PinFunction, self Pin) bool {
	ch := f.Role() &^ InfoNegated
	for i, cur := range h.funcs {
		if Pin(i) != self && cur.IsTimer() && cur.Role()&^InfoNegated == ch {
			return true
		}
	}
	return false
}

// SetOutputValue updates a running analog output, 0-65535, without
// validation. Safe from interrupt context.
func (h *HAL) SetOutputValue(fn PinFunction, value uint16) {
	if fn.IsSoftPWM() {
		pin := fn.Pin()
		if int(pin) < len(h.softPWM) {
			if p := h.softPWM[pin].Load(); p != nil {
				p.duty.Store(uint32(value))
			}
		}
		return
	}
	h.b.SetOutputValue(fn, value)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// dutyFromValue scales 0-1 to 0-65535.
func dutyFromValue(v float64) uint16 {
	return uint16(clamp01(v)*65535 + 0.5)
}

package linux

import (
	"math"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"gohal/core"
)

// pull maps an input state to the periph.io pull resistor.
func pull(state core.PinState) gpio.Pull {
	switch state.Mode() {
	case core.StateInputPullUp, core.StateOutputOpenDrainPullUp:
		return gpio.PullUp
	case core.StateInputPullDown:
		return gpio.PullDown
	case core.StateUndefined:
		return gpio.PullNoChange
	}
	return gpio.Float
}

func level(v bool) gpio.Level {
	if v {
		return gpio.High
	}
	return gpio.Low
}

func (l *Linux) SetValue(p core.Pin, value bool) {
	l.mu.Lock()
	l.outs[p] = value
	io, out := l.pins[p], l.states[p].IsOutput()
	l.mu.Unlock()
	if io != nil && out {
		_ = io.Out(level(value))
	}
}

func (l *Linux) Value(p core.Pin) bool {
	l.mu.Lock()
	io := l.pins[p]
	if l.states[p].IsOutput() {
		v := l.outs[p]
		l.mu.Unlock()
		return v
	}
	l.mu.Unlock()
	if io == nil {
		return false
	}
	return io.Read() == gpio.High
}

// SetState reconfigures the pin. Open-drain outputs are driven push-pull:
// sysfs and gpiochip lines expose no open-drain mode through periph.io.
// Alternate-function states leave the pin to the kernel driver that owns it.
func (l *Linux) SetState(p core.Pin, state core.PinState) {
	state = state.Mode()
	l.mu.Lock()
	l.states[p] = state
	io, out, watched := l.pins[p], l.outs[p], l.watched[p]
	if !state.IsAF() && state != core.StateAnalog {
		l.dropOutputsLocked(p)
	}
	l.mu.Unlock()
	if io == nil {
		return
	}

	var err error
	switch {
	case state.IsOutput():
		err = io.Out(level(out))
	case state.IsInput(), state == core.StateUndefined, state == core.StateAnalog:
		edge := gpio.NoEdge
		if watched {
			edge = gpio.BothEdges
		}
		err = io.In(pull(state), edge)
	}
	if err != nil {
		core.DebugPrintln("[linux] set state " + io.Name() + ": " + err.Error())
	}
}

func (l *Linux) State(p core.Pin) core.PinState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.states[p]
	if st.IsOutput() && l.outs[p] {
		st |= core.PinStateIsOn
	}
	return st
}

// ---- analog ----

// Analog returns 0: Linux boards have no ADC reachable through periph.io,
// and their board tables list no analog channels.
func (l *Linux) Analog(p core.Pin) float64 { return 0 }

func (l *Linux) AnalogFast(p core.Pin) uint16 { return 0 }

type pwmOutput struct {
	pin  core.Pin
	io   gpio.PinIO
	freq physic.Frequency
}

func duty(v float64) gpio.Duty {
	return gpio.Duty(math.Round(v * float64(gpio.DutyMax)))
}

// AnalogOutput starts hardware PWM. There is no DAC on the host.
func (l *Linux) AnalogOutput(p core.Pin, fn core.PinFunction, value float64, freq float64) error {
	if !fn.IsTimer() {
		return core.ErrUnsupported
	}
	l.mu.Lock()
	io := l.pins[p]
	l.mu.Unlock()
	if io == nil {
		return core.ErrUnsupported
	}

	f := physic.Frequency(freq * float64(physic.Hertz))
	if err := io.PWM(duty(value), f); err != nil {
		return err
	}
	l.mu.Lock()
	l.outputs[fn] = &pwmOutput{pin: p, io: io, freq: f}
	l.states[p] = core.StateAFOutput
	l.mu.Unlock()
	return nil
}

func (l *Linux) SetOutputValue(fn core.PinFunction, value uint16) {
	l.mu.Lock()
	o := l.outputs[fn]
	l.mu.Unlock()
	if o == nil {
		return
	}
	_ = o.io.PWM(duty(float64(value)/65535), o.freq)
}

func (l *Linux) dropOutputsLocked(p core.Pin) {
	for fn, o := range l.outputs {
		if o.pin == p {
			delete(l.outputs, fn)
		}
	}
}

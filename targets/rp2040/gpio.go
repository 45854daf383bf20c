//go:build rp2040

package main

import (
	"machine"

	"gohal/core"
)

// pinMode maps a HAL state to a TinyGo pin mode. The RP2040 pads have no
// open-drain driver, so open-drain states drive push-pull.
func pinMode(s core.PinState) machine.PinMode {
	switch s.Mode() {
	case core.StateOutput, core.StateOutputOpenDrain, core.StateOutputOpenDrainPullUp:
		return machine.PinOutput
	case core.StateInputPullUp:
		return machine.PinInputPullup
	case core.StateInputPullDown:
		return machine.PinInputPulldown
	case core.StateAnalog:
		return machine.PinAnalog
	case core.StateAFOutput, core.StateAFOpenDrain:
		return machine.PinPWM
	}
	return machine.PinInput
}

func (p *pico) SetValue(pin core.Pin, value bool) {
	machine.Pin(pin).Set(value)
	if value {
		p.states[pin] |= core.PinStateIsOn
	} else {
		p.states[pin] &^= core.PinStateIsOn
	}
}

func (p *pico) Value(pin core.Pin) bool {
	return machine.Pin(pin).Get()
}

// SetState reconfigures the pad. AF states are applied by the peripheral
// that claims the pin, which knows the function to select.
func (p *pico) SetState(pin core.Pin, state core.PinState) {
	old := p.states[pin]
	p.states[pin] = state.Mode() | old&core.PinStateIsOn
	if old.IsAF() && !state.IsAF() {
		p.releasePWM(pin)
	}
	if state.IsAF() {
		return
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: pinMode(state)})
	if state.IsOutput() {
		machine.Pin(pin).Set(old.IsOn())
	}
}

func (p *pico) State(pin core.Pin) core.PinState {
	s := p.states[pin].Mode()
	if s.IsOutput() && machine.Pin(pin).Get() {
		s |= core.PinStateIsOn
	}
	return s
}

func (p *pico) CanWatch(pin core.Pin) bool { return int(pin) < gpioCount }

// Watch routes the pin's edge interrupt to its EXTI line, GPIO number
// modulo 16. Only one pin may own a line.
func (p *pico) Watch(pin core.Pin, enable bool, flags core.WatchFlags) core.Device {
	line := p.board.EXTILine(pin)
	if line < 0 {
		return core.DeviceNone
	}
	mp := machine.Pin(pin)
	if !enable {
		if p.lines[line] == int8(pin) {
			_ = mp.SetInterrupt(0, nil)
			p.lines[line] = -1
			p.watched[pin] = false
		}
		return core.DeviceNone
	}
	if owner := p.lines[line]; owner >= 0 && owner != int8(pin) {
		return core.DeviceNone
	}
	p.flags[line] = flags
	if p.lines[line] == int8(pin) {
		return core.EXTI(line)
	}

	if !p.states[pin].IsInput() {
		p.SetState(pin, core.StateInput)
	}
	dev := core.EXTI(line)
	err := mp.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		at := p.Now()
		level := mp.Get()
		p.wake()
		if p.irq != nil {
			p.irq.WatchEdge(dev, level, at)
		}
	})
	if err != nil {
		core.DebugPrintln("[pico] watch " + p.board.Pins[pin].Name + ": " + err.Error())
		return core.DeviceNone
	}
	p.lines[line] = int8(pin)
	p.watched[pin] = true
	return dev
}

func (p *pico) WatchedPinLevel(dev core.Device) bool {
	if !dev.IsEXTI() {
		return false
	}
	n := p.lines[dev.Index()]
	if n < 0 {
		return false
	}
	return machine.Pin(n).Get()
}

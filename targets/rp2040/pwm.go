//go:build rp2040

package main

import (
	"machine"

	"gohal/core"
)

const pwmSlices = 8

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type.
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// pwmSlice tracks one slice: both channels share its period.
type pwmSlice struct {
	period uint64 // ns, 0 when unconfigured
	pins   [2]int8
}

func getPWMPeripheral(slice int) pwmPeripheral {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	}
	return machine.PWM7
}

// pwmChannel splits a timer function into slice and channel (A=0, B=1).
func pwmChannel(fn core.PinFunction) (slice, ch int) {
	return int((fn.Type()-core.FuncTimer1)>>8) % pwmSlices, fn.Channel() - 1
}

// AnalogOutput starts hardware PWM on the pin's slice. A new frequency
// retimes the slice, which also affects its other channel.
func (p *pico) AnalogOutput(pin core.Pin, fn core.PinFunction, value float64, freq float64) error {
	if !fn.IsTimer() || freq <= 0 {
		return core.ErrUnsupported
	}
	slice, ch := pwmChannel(fn)
	if ch > 1 {
		return core.ErrNoAnalogOutput
	}
	pwm := getPWMPeripheral(slice)
	period := uint64(1e9 / freq)
	s := &p.pwm[slice]
	if s.period != period {
		if err := pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
			return err
		}
		s.period = period
	}
	if _, err := pwm.Channel(machine.Pin(pin)); err != nil {
		return err
	}
	s.pins[ch] = int8(pin)
	p.states[pin] = core.StateAFOutput
	pwm.Set(uint8(ch), uint32(value*float64(pwm.Top())))
	return nil
}

func (p *pico) SetOutputValue(fn core.PinFunction, value uint16) {
	if !fn.IsTimer() {
		return
	}
	slice, ch := pwmChannel(fn)
	if ch > 1 || p.pwm[slice].period == 0 {
		return
	}
	pwm := getPWMPeripheral(slice)
	pwm.Set(uint8(ch), uint32(uint64(value)*uint64(pwm.Top())/65535))
}

// releasePWM forgets the pin's channel. The pad is reconfigured by the
// caller, which detaches it from the slice.
func (p *pico) releasePWM(pin core.Pin) {
	slice, ch := int(pin>>1)&7, int(pin&1)
	s := &p.pwm[slice]
	if s.pins[ch] != int8(pin) {
		return
	}
	getPWMPeripheral(slice).Set(uint8(ch), 0)
	s.pins[ch] = -1
	if s.pins[ch^1] < 0 {
		s.period = 0
	}
}

func (p *pico) stopPWM() {
	for i := range p.pwm {
		for ch := range p.pwm[i].pins {
			if p.pwm[i].period != 0 {
				getPWMPeripheral(i).Set(uint8(ch), 0)
			}
			p.pwm[i].pins[ch] = -1
		}
		p.pwm[i].period = 0
	}
}

// GPIO support: pin state, digital reads/writes and timed outputs.
package core

// SetDigital drives pin without validation or state changes. Safe from
// interrupt context.
func (h *HAL) SetDigital(pin Pin, value bool) {
	h.b.SetValue(pin, value)
}

// Digital reads pin without validation or state changes.
func (h *HAL) Digital(pin Pin) bool {
	return h.b.Value(pin)
}

// PinInfo returns the board table entry for pin.
func (h *HAL) PinInfo(pin Pin) (*PinInfo, error) {
	info := h.board.Pin(pin)
	if info == nil {
		return nil, pinErr("info", pin, ErrInvalidPin)
	}
	return info, nil
}

// SetPinState reconfigures pin. Moving a pin out of output mode stops any
// software PWM running on it; pins owned by a bus peripheral only accept
// alternate-function states.
func (h *HAL) SetPinState(pin Pin, state PinState) error {
	if !h.board.IsPinValid(pin) {
		return pinErr("set state", pin, ErrInvalidPin)
	}
	state = state.Mode()
	if !state.valid() {
		return pinErr("set state", pin, ErrInvalidState)
	}
	fn := h.funcs[pin]
	if fn.IsPeripheral() && !state.IsAF() {
		return pinErr("set state", pin, ErrPinInUse)
	}
	if !state.IsOutput() {
		h.stopSoftPWM(pin)
	}
	if fn.IsAnalogOutput() && !fn.IsSoftPWM() && !state.IsAF() {
		h.funcs[pin] = PinFunctionNone
	}
	h.b.SetState(pin, state)
	return nil
}

// PinState returns the configured state; PinStateIsOn is set for outputs
// currently driven high.
func (h *HAL) PinState(pin Pin) (PinState, error) {
	if !h.board.IsPinValid(pin) {
		return StateUndefined, pinErr("get state", pin, ErrInvalidPin)
	}
	return h.b.State(pin), nil
}

// IsPinStateDefault reports whether state is what the pin powers up in.
func (h *HAL) IsPinStateDefault(pin Pin, state PinState) bool {
	if !h.board.IsPinValid(pin) {
		return false
	}
	state = state.Mode()
	return state == StateUndefined || state == h.board.PowerOnState(pin)
}

// CurrentFunction returns the peripheral or analog output bound to pin.
func (h *HAL) CurrentFunction(pin Pin) (PinFunction, error) {
	if !h.board.IsPinValid(pin) {
		return PinFunctionNone, pinErr("function", pin, ErrInvalidPin)
	}
	return h.funcs[pin], nil
}

// PinOutput makes pin an output if it is not one already and drives it.
func (h *HAL) PinOutput(pin Pin, value bool) error {
	if !h.board.IsPinValid(pin) {
		return pinErr("output", pin, ErrInvalidPin)
	}
	h.stopSoftPWM(pin)
	if err := h.ensureOutput(pin); err != nil {
		return err
	}
	h.b.SetValue(pin, value)
	return nil
}

func (h *HAL) ensureOutput(pin Pin) error {
	if h.b.State(pin).IsOutput() {
		return nil
	}
	return h.SetPinState(pin, StateOutput)
}

// PinInput reads pin, first making it an input if its state is still the
// power-on default.
func (h *HAL) PinInput(pin Pin) (bool, error) {
	if !h.board.IsPinValid(pin) {
		return false, pinErr("input", pin, ErrInvalidPin)
	}
	state := h.b.State(pin).Mode()
	if h.IsPinStateDefault(pin, state) && !state.IsInput() {
		if err := h.SetPinState(pin, StateInput); err != nil {
			return false, err
		}
	}
	return h.b.Value(pin), nil
}

// PinToggle inverts an output and returns the new level.
func (h *HAL) PinToggle(pin Pin) (bool, error) {
	if !h.board.IsPinValid(pin) {
		return false, pinErr("toggle", pin, ErrInvalidPin)
	}
	value := !h.b.State(pin).IsOn()
	return value, h.PinOutput(pin, value)
}

// PinOutputAtTime drives every pin to value at the given time from the
// utility timer interrupt. Pins are made outputs immediately.
func (h *HAL) PinOutputAtTime(at SysTime, pins []Pin, value bool) error {
	for _, p := range pins {
		if !h.board.IsPinValid(p) {
			return pinErr("output at time", p, ErrInvalidPin)
		}
	}
	for _, p := range pins {
		if err := h.ensureOutput(p); err != nil {
			return err
		}
	}

	if len(pins) == 0 {
		return nil
	}
	t := &Task{
		WakeTime: at,
		Pin:      PinUndefined,
		Handler: func(t *Task) uint8 {
			if t.Pin != PinUndefined {
				h.b.SetValue(t.Pin, value)
			}
			for _, p := range t.Pins {
				h.b.SetValue(p, value)
			}
			return SF_DONE
		},
	}
	if len(pins) == 1 {
		t.Pin = pins[0]
	} else {
		// Removing tasks for one of the pins leaves the others driven.
		t.Pins = append([]Pin(nil), pins...)
	}
	h.AddTask(t)
	return nil
}

// pulseTrain toggles a pin at successive boundaries.
type pulseTrain struct {
	h         *HAL
	pin       Pin
	level     bool
	durations []SysTime
	next      int // index of the segment that starts at the next wake, -1 before the first
	task      Task
}

func (p *pulseTrain) run(t *Task) uint8 {
	if p.next < 0 {
		p.h.b.SetValue(p.pin, p.level)
		p.next = 0
	} else {
		p.level = !p.level
		p.h.b.SetValue(p.pin, p.level)
	}
	if p.next >= len(p.durations) {
		return SF_DONE
	}
	t.WakeTime += p.durations[p.next]
	p.next++
	return SF_RESCHEDULE
}

// DigitalPulse drives pin to value and then inverts it at the end of each
// of times (ms), so [5, 2, 4] gives 5ms at value, 2ms inverted, 4ms at value
// and then leaves the pin inverted. A pulse requested while another is
// running on the same pin starts when the earlier one ends.
func (h *HAL) DigitalPulse(pin Pin, value bool, times []float64) error {
	if !h.board.IsPinValid(pin) {
		return pinErr("pulse", pin, ErrInvalidPin)
	}
	if len(times) == 0 {
		return nil
	}
	h.stopSoftPWM(pin)
	if err := h.ensureOutput(pin); err != nil {
		return err
	}

	p := &pulseTrain{h: h, pin: pin, level: value, next: -1}
	var total SysTime
	for _, ms := range times {
		d := h.TimeFromMillis(ms)
		p.durations = append(p.durations, d)
		total += d
	}

	now := h.b.Now()
	start := now
	if end, ok := h.pulseEnd[pin]; ok && end > now {
		start = end
	}
	h.pulseEnd[pin] = start + total

	p.task = Task{WakeTime: start, Pin: pin, Handler: p.run}
	if start == now {
		// First edge now, the rest on the timer.
		p.run(&p.task)
	}
	h.AddTask(&p.task)
	return nil
}

// PinReport describes a pin: its table entry plus what it is doing now.
type PinReport struct {
	Name          string
	Port          byte
	Num           uint8
	State         PinState
	Output        bool // driven high
	AnalogChannel int
	ADCs          uint8
	Functions     []PinFunction
	Current       PinFunction
}

// PinReport returns the capability and live state of pin.
func (h *HAL) PinReport(pin Pin) (PinReport, error) {
	info := h.board.Pin(pin)
	if info == nil {
		return PinReport{}, pinErr("report", pin, ErrInvalidPin)
	}
	state := h.b.State(pin)
	return PinReport{
		Name:          info.Name,
		Port:          info.Port,
		Num:           info.Num,
		State:         state.Mode(),
		Output:        state.IsOn(),
		AnalogChannel: info.AnalogChannel,
		ADCs:          info.ADCs,
		Functions:     info.Functions,
		Current:       h.funcs[pin],
	}, nil
}

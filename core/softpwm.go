package core

import "sync/atomic"

// softPWM toggles a pin from the utility timer. Each edge is computed from
// the previous intended edge, not from when the handler actually ran.
type softPWM struct {
	h           *HAL
	pin         Pin
	period      SysTime
	duty        atomic.Uint32 // 0-65535
	high        bool
	periodStart SysTime
	task        Task
}

func (s *softPWM) run(t *Task) uint8 {
	if s.high {
		s.h.b.SetValue(s.pin, false)
		s.high = false
		t.WakeTime = s.periodStart + s.period
		return SF_RESCHEDULE
	}

	s.periodStart = t.WakeTime
	on := SysTime(uint64(s.period) * uint64(s.duty.Load()) / 65535)
	switch {
	case on == 0:
		s.h.b.SetValue(s.pin, false)
		t.WakeTime += s.period
	case on >= s.period:
		s.h.b.SetValue(s.pin, true)
		t.WakeTime += s.period
	default:
		s.h.b.SetValue(s.pin, true)
		s.high = true
		t.WakeTime += on
	}
	return SF_RESCHEDULE
}

func (h *HAL) startSoftPWM(pin Pin, value, freq float64) (PinFunction, error) {
	if err := h.SetPinState(pin, StateOutput); err != nil {
		return PinFunctionNone, err
	}

	period := h.TimeFromMillis(1000 / freq)
	if period < 2 {
		period = 2
	}
	p := &softPWM{h: h, pin: pin, period: period}
	p.duty.Store(uint32(dutyFromValue(value)))
	p.task = Task{WakeTime: h.b.Now(), Pin: pin, Handler: p.run}

	fn := SoftPWMFunction(pin)
	h.softPWM[pin].Store(p)
	h.funcs[pin] = fn
	// First edge now, the rest on the timer.
	p.run(&p.task)
	h.AddTask(&p.task)
	return fn, nil
}

// stopSoftPWM cancels software PWM on pin, leaving the pin at its last level.
func (h *HAL) stopSoftPWM(pin Pin) {
	p := h.softPWM[pin].Swap(nil)
	if p == nil {
		return
	}
	h.RemoveTask(&p.task)
	if h.funcs[pin].IsSoftPWM() {
		h.funcs[pin] = PinFunctionNone
	}
}

// SoftPWMRunning reports whether software PWM is active on pin.
func (h *HAL) SoftPWMRunning(pin Pin) bool {
	return int(pin) < len(h.softPWM) && h.softPWM[pin].Load() != nil
}

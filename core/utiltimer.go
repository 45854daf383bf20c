package core

// maxTasksPerExpiry bounds the work done in one timer interrupt so that a
// periodic task shorter than its own handler cannot livelock the device.
const maxTasksPerExpiry = 64

// AddTask queues t and makes sure the utility timer will fire for it.
func (h *HAL) AddTask(t *Task) {
	s := disableInterrupts()
	h.tasks.Add(t)
	if !h.timerArmed || t.WakeTime < h.timerDue {
		h.startTimer(t.WakeTime)
	}
	restoreInterrupts(s)
}

// RemoveTask unqueues t, reporting whether it was queued.
func (h *HAL) RemoveTask(t *Task) bool {
	s := disableInterrupts()
	removed := h.tasks.Remove(t)
	if h.tasks.Len() == 0 {
		h.stopTimer()
	}
	restoreInterrupts(s)
	return removed
}

// RemovePinTasks drops every queued task driving pin.
func (h *HAL) RemovePinTasks(pin Pin) int {
	s := disableInterrupts()
	n := h.tasks.RemovePin(pin)
	if h.tasks.Len() == 0 {
		h.stopTimer()
	}
	restoreInterrupts(s)
	if int(pin) < len(h.softPWM) {
		h.softPWM[pin].Store(nil)
		if h.funcs[pin].IsSoftPWM() {
			h.funcs[pin] = PinFunctionNone
		}
	}
	delete(h.pulseEnd, pin)
	return n
}

// PendingTasks returns the number of queued tasks.
func (h *HAL) PendingTasks() int {
	s := disableInterrupts()
	defer restoreInterrupts(s)
	return h.tasks.Len()
}

// ScheduleFunc runs fn from the utility timer interrupt at the given time.
func (h *HAL) ScheduleFunc(at SysTime, fn func()) *Task {
	t := &Task{
		WakeTime: at,
		Pin:      PinUndefined,
		Handler: func(*Task) uint8 {
			fn()
			return SF_DONE
		},
	}
	h.AddTask(t)
	return t
}

// UtilTimerExpired runs every task that is due, in order, and re-arms the
// timer for the next one relative to this expiry's intended time.
//
// Handlers run with interrupts disabled. They may only use the unchecked
// fast paths (SetDigital, SetOutputValue, ...) and must not queue tasks
// other than by returning SF_RESCHEDULE.
func (h *HAL) UtilTimerExpired() {
	s := enterInterrupt()
	defer exitInterrupt(s)

	if !h.timerArmed {
		// Spurious: disabled between the hardware firing and us getting here.
		return
	}
	if _, pending := h.b.TimerDue(); pending {
		// Stale: re-armed between the hardware firing and us getting here.
		// The new arm has not expired yet.
		return
	}
	h.timerArmed = false
	h.timerBase = h.timerDue

	now := h.b.Now()
	RecordTiming(EvtTimerFire, 0, now, uint64(h.timerDue), uint32(h.tasks.Len()))

	for n := 0; n < maxTasksPerExpiry; n++ {
		t := h.tasks.Peek()
		if t == nil || t.WakeTime > now {
			break
		}
		h.tasks.Pop()
		if now > t.WakeTime {
			RecordTiming(EvtTaskLate, uint8(t.Pin), now, uint64(t.WakeTime), 0)
		}
		if t.Handler(t) == SF_RESCHEDULE {
			h.tasks.Add(t)
		}
		now = h.b.Now()
	}

	h.rescheduleTimer()
}

// startTimer arms the timer for at, measured from now. Interrupts are off.
func (h *HAL) startTimer(at SysTime) {
	now := h.b.Now()
	period := SysTime(1)
	if at > now {
		period = at - now
	}
	h.b.UtilTimerStart(period)
	h.timerArmed = true
	h.timerEnabled = true
	h.timerBase = now
	h.timerDue = now + period
	RecordTiming(EvtTimerStart, 0, now, uint64(h.timerDue), 0)
}

// rescheduleTimer arms the timer for the head task relative to the previous
// intended expiry, or disables it when nothing is queued. Interrupts are off.
func (h *HAL) rescheduleTimer() {
	next := h.tasks.Peek()
	if next == nil {
		h.stopTimer()
		return
	}
	if !h.timerEnabled {
		h.startTimer(next.WakeTime)
		return
	}
	period := SysTime(1)
	if next.WakeTime > h.timerBase {
		period = next.WakeTime - h.timerBase
	}
	h.b.UtilTimerReschedule(period)
	h.timerArmed = true
	h.timerDue = h.timerBase + period
	RecordTiming(EvtTimerResched, 0, h.timerBase, uint64(h.timerDue), 0)
}

// stopTimer disables the utility timer. Interrupts are off.
func (h *HAL) stopTimer() {
	if !h.timerEnabled && !h.timerArmed {
		return
	}
	h.b.UtilTimerDisable()
	h.timerArmed = false
	h.timerEnabled = false
	RecordTiming(EvtTimerStop, 0, h.b.Now(), 0, 0)
}

// TimerArmed reports whether the utility timer is armed and when it is due.
func (h *HAL) TimerArmed() (SysTime, bool) {
	s := disableInterrupts()
	defer restoreInterrupts(s)
	return h.timerDue, h.timerArmed
}

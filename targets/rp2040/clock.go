//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"gohal/core"
)

// RP2040 timer peripheral. Alarm 0 belongs to the TinyGo runtime, so the
// utility timer uses alarm 1.
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14
	timerARMED    = timerBase + 0x20
	timerTIMERAWH = timerBase + 0x24 // raw timer high word, no latching
	timerTIMERAWL = timerBase + 0x28 // raw timer low word
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38

	alarm1Bit = 1 << 1

	ticksPerSecond = 1000000
)

var (
	timerRAWH   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerAlarm1 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerArmed  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerARMED)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

// rawTime reads the full 64-bit microsecond counter. High is read before
// and after low to catch a carry between the two reads.
func rawTime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return uint64(high1)<<32 | uint64(low)
		}
	}
}

func initClock() {
	timerInte.SetBits(alarm1Bit)
	irq := interrupt.New(rp.IRQ_TIMER_IRQ_1, timerISR)
	irq.SetPriority(0x40)
	irq.Enable()
}

func (p *pico) Now() core.SysTime {
	return core.SysTime(int64(rawTime()) + p.offset)
}

// SetNow keeps the hardware counter running and moves the offset instead,
// so the runtime's own alarm is not disturbed.
func (p *pico) SetNow(t core.SysTime) {
	p.offset = int64(t) - int64(rawTime())
}

func (p *pico) TicksPerSecond() uint64 { return ticksPerSecond }

func (p *pico) DelayMicroseconds(us uint32) {
	end := rawTime() + uint64(us)
	for rawTime() < end {
	}
}

func (p *pico) UtilTimerStart(period core.SysTime) {
	p.timer.Start(rawTime(), uint64(period))
	p.setAlarm()
}

// UtilTimerReschedule measures period from the previous intended expiry.
// Jitter is bounded by interrupt latency plus alarm.MinLead.
func (p *pico) UtilTimerReschedule(period core.SysTime) {
	p.timer.Reschedule(rawTime(), uint64(period))
	p.setAlarm()
}

func (p *pico) UtilTimerDisable() {
	p.timer.Disable()
	timerArmed.Set(alarm1Bit)
	timerIntr.Set(alarm1Bit)
}

// setAlarm programs the next hop towards the pending expiry. Writing
// ALARM1 arms it.
func (p *pico) setAlarm() {
	timerAlarm1.Set(uint32(p.timer.Target(rawTime())))
}

func timerISR(interrupt.Interrupt) {
	timerIntr.Set(alarm1Bit)
	p := hw
	if p == nil || !p.timer.Armed() {
		return
	}
	if !p.timer.Expire(rawTime()) {
		p.setAlarm()
		return
	}
	p.wake()
	if p.irq != nil {
		p.irq.UtilTimerExpired()
	}
}

// TimerDue reports the intended expiry of alarm 1 in HAL time.
func (p *pico) TimerDue() (core.SysTime, bool) {
	due, armed := p.timer.Due()
	return core.SysTime(int64(due) + p.offset), armed
}

//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"time"

	"gohal/core"
)

// The RP2040 watchdog counts a 24-bit value at 2 ticks per microsecond.
const maxWatchdogMillis = 0xffffff / 2 / 1000

// sleepSlice bounds each nap so that the scheduler sees runnable
// goroutines, such as the USART readers, promptly.
const sleepSlice = time.Millisecond

// Sleep naps in the TinyGo scheduler, which idles the core with WFI when
// nothing is runnable. It returns on the first interrupt that calls wake
// or when until is reached.
func (p *pico) Sleep(until core.SysTime) bool {
	p.woken.Set(0)
	if p.irq != nil && p.irq.PendingEvent() {
		return true
	}
	for p.woken.Get() == 0 {
		d := sleepSlice
		if until != core.SleepForever {
			now := p.Now()
			if now >= until {
				break
			}
			if rem := time.Duration(until-now) * time.Microsecond; rem < d {
				d = rem
			}
		}
		time.Sleep(d)
	}
	return true
}

func (p *pico) EnableWatchdog(timeout float64) error {
	ms := uint32(timeout * 1000)
	if ms == 0 || ms > maxWatchdogMillis {
		return core.ErrInvalidTimeout
	}
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: ms}); err != nil {
		return err
	}
	return machine.Watchdog.Start()
}

func (p *pico) KickWatchdog() {
	machine.Watchdog.Update()
}

// SerialNumber returns the unique ID of the boot flash.
func (p *pico) SerialNumber() []byte {
	return machine.DeviceID()
}

func (p *pico) IsUSBConnected() bool {
	return rp.USBCTRL_REGS.SIE_STATUS.HasBits(rp.USBCTRL_REGS_SIE_STATUS_CONNECTED)
}

// RandomNumber samples the ring oscillator.
func (p *pico) RandomNumber() uint32 {
	n, err := machine.GetRNG()
	if err != nil {
		return uint32(rawTime())
	}
	return n
}

func (p *pico) SystemClock() uint32 { return machine.CPUFrequency() }

// SetSystemClock is unsupported: the USB PLL and UART dividers are derived
// from the boot clock.
func (p *pico) SetSystemClock(hz uint32) uint32 { return 0 }

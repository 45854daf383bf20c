//go:build rp2040

package main

import (
	"machine"

	"gohal/core"
)

const (
	blinkMillis   = 500
	pollMillis    = 10
	buttonPin     = core.Pin(15)
	watchdogSecs  = 4.0
	consoleBaud   = 115200
	usbBufferSize = 64
)

func main() {
	// A watchdog left running by a previous image would reset us during
	// USB enumeration.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	initUSB()
	core.SetDebugWriter(func(msg string) {
		writeUSB([]byte(msg + "\r\n"))
	})

	b := newPico()
	h := core.New(b, core.WithOnEvent(b.wake))
	core.SetDefault(h)
	h.Init()

	console := h.Board().DefaultConsole
	info := core.NewUSARTInfo()
	info.Baud = consoleBaud
	if err := h.Setup(console, info); err != nil {
		core.DebugPrintln("[pico] console: " + err.Error())
	}
	if err := h.SetPinState(buttonPin, core.StateInputPullUp); err == nil {
		if _, err := h.Watch(buttonPin, true, core.WatchNone); err != nil {
			core.DebugPrintln("[pico] button: " + err.Error())
		}
	}
	startBlink(h)
	if err := h.EnableWatchdog(watchdogSecs); err != nil {
		core.DebugPrintln("[pico] watchdog: " + err.Error())
	}
	core.DebugPrintln("[pico] ready")

	var usb [usbBufferSize]byte
	for {
		h.Idle(func(ev core.IOEvent) {
			handleEvent(h, ev)
		})
		if n := readUSB(usb[:]); n > 0 {
			if err := h.USARTWrite(console, usb[:n]); err != nil {
				core.DebugPrintln("[pico] " + console.String() + ": " + err.Error())
			}
		}
		h.KickWatchdog()
		// USB traffic does not raise a HAL event, so poll it.
		h.Sleep(h.Now() + h.TimeFromMillis(pollMillis))
	}
}

// handleEvent copies console input to USB and reports button edges.
func handleEvent(h *core.HAL, ev core.IOEvent) {
	switch {
	case ev.Device.IsUSART():
		writeUSB(ev.Bytes())
	case h.IsEventForPin(ev.Device, buttonPin):
		state := "released"
		if !ev.Level {
			state = "pressed"
		}
		core.DebugPrintln("[pico] button " + state + " at " + itoa(int(ev.Time/1000)) + "ms")
	}
}

// startBlink toggles the LED from the utility timer.
func startBlink(h *core.HAL) {
	led := h.Board().LEDs[0]
	if err := h.PinOutput(led, false); err != nil {
		return
	}
	period := h.TimeFromMillis(blinkMillis)
	on := false
	h.AddTask(&core.Task{
		WakeTime: h.Now() + period,
		Pin:      led,
		Handler: func(t *core.Task) uint8 {
			on = !on
			h.SetDigital(led, on)
			t.WakeTime += period
			return core.SF_RESCHEDULE
		},
	})
}

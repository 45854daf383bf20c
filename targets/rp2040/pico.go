//go:build rp2040

package main

import (
	"runtime/volatile"

	"gohal/core"
	"gohal/targets/rp2040/alarm"
)

var _ core.Backend = (*pico)(nil)

// hw is the backend the interrupt handlers report to.
var hw *pico

// pico implements core.Backend on a Raspberry Pi Pico.
type pico struct {
	board  *core.Board
	irq    core.IRQHandler
	offset int64

	states  [gpioCount]core.PinState
	watched [gpioCount]bool
	lines   [core.EXTICount]int8 // watched GPIO per line, -1 when free
	flags   [core.EXTICount]core.WatchFlags

	timer   alarm.Timer
	pwm     [pwmSlices]pwmSlice
	usart   [2]*usartPort
	spi     [2]*spiBus
	i2c     [2]*i2cBus
	woken   volatile.Register8
}

func newPico() *pico {
	p := &pico{board: picoBoard()}
	for i := range p.lines {
		p.lines[i] = -1
	}
	p.stopPWM()
	for n := range p.states {
		p.states[n] = p.board.PowerOnState(core.Pin(n))
	}
	hw = p
	initClock()
	initADC()
	return p
}

func (p *pico) Board() *core.Board { return p.board }

func (p *pico) Attach(h core.IRQHandler) { p.irq = h }

// Kill stops alarm 1, every watch and every peripheral.
func (p *pico) Kill() {
	p.UtilTimerDisable()
	for line, n := range p.lines {
		if n >= 0 {
			p.Watch(core.Pin(n), false, 0)
		}
		p.lines[line] = -1
	}
	for i := range p.usart {
		p.UnsetupPeripheral(core.Serial(i + 1))
	}
	for i := range p.spi {
		p.UnsetupPeripheral(core.SPI(i + 1))
	}
	for i := range p.i2c {
		p.UnsetupPeripheral(core.I2C(i + 1))
	}
	p.stopPWM()
}

// wake is called from interrupt handlers to end a Sleep.
func (p *pico) wake() { p.woken.Set(1) }

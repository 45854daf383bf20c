//go:build rp2040

package main

import (
	"context"
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"gohal/core"
)

// usartPort is one UART with its receive goroutine. uartx buffers receive
// data from its own interrupt, so the goroutine only forwards it.
type usartPort struct {
	u      *uartx.UART
	cancel context.CancelFunc
}

func uartFor(dev core.Device) *uartx.UART {
	if dev == core.Serial(2) {
		return uartx.UART1
	}
	return uartx.UART0
}

func (p *pico) setupUSART(dev core.Device, info *core.USARTInfo) error {
	// The PL011 frame tops out at 8 data bits.
	if info.Bytesize > 8 {
		return core.ErrUnsupported
	}
	u := uartFor(dev)
	err := u.Configure(uartx.UARTConfig{
		BaudRate: info.Baud,
		TX:       machine.Pin(info.TX),
		RX:       machine.Pin(info.RX),
	})
	if err != nil {
		return err
	}
	par := uartx.ParityNone
	switch info.Parity {
	case core.ParityEven:
		par = uartx.ParityEven
	case core.ParityOdd:
		par = uartx.ParityOdd
	}
	if err := u.SetFormat(info.Bytesize, info.Stopbits, par); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.usart[unit(dev)] = &usartPort{u: u, cancel: cancel}
	go p.usartReader(ctx, dev, u)
	return nil
}

func (p *pico) usartReader(ctx context.Context, dev core.Device, u *uartx.UART) {
	var buf [core.IOEventDataMax]byte
	for {
		n, err := u.RecvSomeContext(ctx, buf[:])
		if err != nil {
			return
		}
		if n > 0 && p.irq != nil {
			p.irq.PushRX(dev, buf[:n])
		}
	}
}

// kickUSART drains the HAL's transmit buffer. uartx.Write blocks while its
// own FIFO is full.
func (p *pico) kickUSART(dev core.Device) {
	port := p.usart[unit(dev)]
	if port == nil || p.irq == nil {
		return
	}
	var buf [32]byte
	for {
		n := p.irq.TakeTX(dev, buf[:])
		if n == 0 {
			return
		}
		if _, err := port.u.Write(buf[:n]); err != nil {
			core.DebugPrintln("[pico] " + dev.String() + " write: " + err.Error())
			return
		}
	}
}

func (p *pico) unsetupUSART(dev core.Device) {
	port := p.usart[unit(dev)]
	if port == nil {
		return
	}
	port.cancel()
	p.usart[unit(dev)] = nil
}

//go:build rp2040

package main

import "gohal/core"

// RP2040 pin mux, by GPIO number. Each GPIO has one fixed function per
// peripheral, so no AF index is needed.
var (
	uart0TX = []int{0, 12, 16, 28}
	uart0RX = []int{1, 13, 17, 29}
	uart1TX = []int{4, 8, 20, 24}
	uart1RX = []int{5, 9, 21, 25}

	spi0SCK  = []int{2, 6, 18, 22}
	spi0MOSI = []int{3, 7, 19, 23}
	spi0MISO = []int{0, 4, 16, 20}
	spi1SCK  = []int{10, 14, 26}
	spi1MOSI = []int{11, 15, 27}
	spi1MISO = []int{8, 12, 24, 28}
)

const (
	gpioCount = 30
	ledPin    = 25
)

// pwmFunction returns the slice output GPIO n drives: slice (n/2)%8 as a
// timer, channel A or B as CH1 or CH2.
func pwmFunction(n int) core.PinFunction {
	return core.TimerFunction((n>>1)&7+1, n&1+1)
}

// picoBoard builds the capability table of a Raspberry Pi Pico.
func picoBoard() *core.Board {
	b := &core.Board{
		Name:           "pico",
		Pins:           make([]core.PinInfo, gpioCount),
		USARTs:         2,
		SPIs:           2,
		I2Cs:           2,
		ADCResolution:  12,
		VRef:           3.3,
		SystemClockHz:  125000000,
		HasUSB:         true,
		LEDs:           []core.Pin{ledPin},
		DefaultConsole: core.Serial(1),
	}
	for n := range b.Pins {
		p := &b.Pins[n]
		p.Name = "GP" + itoa(n)
		p.Port = 'G'
		p.Num = uint8(n)
		p.AnalogChannel = core.NoAnalogChannel
		if n >= 26 {
			p.AnalogChannel = n - 26
			p.ADCs = 1
		}
		p.Functions = append(p.Functions, pwmFunction(n))

		// I2C alternates SDA/SCL on every GPIO, swapping controllers each
		// pair of pins.
		i2c := core.FuncI2C1
		if n&2 != 0 {
			i2c += 0x0100
		}
		if n&1 == 0 {
			p.Functions = append(p.Functions, i2c|core.InfoI2CSDA)
		} else {
			p.Functions = append(p.Functions, i2c|core.InfoI2CSCL)
		}
	}
	add := func(pins []int, fn core.PinFunction) {
		for _, n := range pins {
			b.Pins[n].Functions = append(b.Pins[n].Functions, fn)
		}
	}
	add(uart0TX, core.FuncUSART1|core.InfoUSARTTX)
	add(uart0RX, core.FuncUSART1|core.InfoUSARTRX)
	add(uart1TX, (core.FuncUSART1+0x0100)|core.InfoUSARTTX)
	add(uart1RX, (core.FuncUSART1+0x0100)|core.InfoUSARTRX)
	add(spi0SCK, core.FuncSPI1|core.InfoSPISCK)
	add(spi0MOSI, core.FuncSPI1|core.InfoSPIMOSI)
	add(spi0MISO, core.FuncSPI1|core.InfoSPIMISO)
	add(spi1SCK, (core.FuncSPI1+0x0100)|core.InfoSPISCK)
	add(spi1MOSI, (core.FuncSPI1+0x0100)|core.InfoSPIMOSI)
	add(spi1MISO, (core.FuncSPI1+0x0100)|core.InfoSPIMISO)
	return b
}

// itoa converts int to string without importing strconv (for embedded)
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [12]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

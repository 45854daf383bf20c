package core

// PinFunction identifies what drives a pin: a device type in the high byte,
// a role/channel in bits 4-7 and the alternate-function index in bits 0-3.
// Software PWM functions keep the pin index in the low byte instead.
type PinFunction uint16

const (
	PinFunctionNone PinFunction = 0

	pinFuncTypeMask PinFunction = 0xFF00
	pinFuncInfoMask PinFunction = 0x00F0
	pinFuncAFMask   PinFunction = 0x000F
)

// Device types. Timers, USARTs, SPIs and I2Cs are numbered consecutively.
const (
	FuncTimer1  PinFunction = 0x0100
	FuncTimer16 PinFunction = 0x1000
	FuncDAC     PinFunction = 0x2000
	FuncUSART1  PinFunction = 0x3000
	FuncSPI1    PinFunction = 0x4000
	FuncI2C1    PinFunction = 0x5000
	FuncSoftPWM PinFunction = 0x6000
)

// Roles, stored in the info bits.
const (
	InfoCH1     PinFunction = 0x00
	InfoCH2     PinFunction = 0x10
	InfoCH3     PinFunction = 0x20
	InfoCH4     PinFunction = 0x30
	InfoNegated PinFunction = 0x40 // complementary timer output

	InfoDACCH1 PinFunction = 0x00
	InfoDACCH2 PinFunction = 0x10

	InfoUSARTRX  PinFunction = 0x00
	InfoUSARTTX  PinFunction = 0x10
	InfoUSARTCK  PinFunction = 0x20
	InfoUSARTCTS PinFunction = 0x30

	InfoSPISCK  PinFunction = 0x00
	InfoSPIMISO PinFunction = 0x10
	InfoSPIMOSI PinFunction = 0x20

	InfoI2CSCL PinFunction = 0x00
	InfoI2CSDA PinFunction = 0x10
)

// Counts of each numbered device type.
const (
	TimerCount = 16
	USARTCount = 6
	SPICount   = 3
	I2CCount   = 3
	EXTICount  = 16
)

// TimerFunction returns channel ch (1-4) of timer n (1-16).
func TimerFunction(n, ch int) PinFunction {
	return FuncTimer1 + PinFunction(n-1)<<8 | PinFunction(ch-1)<<4
}

// SoftPWMFunction is the function reported for software PWM on pin.
func SoftPWMFunction(pin Pin) PinFunction { return FuncSoftPWM | PinFunction(pin) }

func (f PinFunction) Type() PinFunction { return f & pinFuncTypeMask }
func (f PinFunction) Info() PinFunction { return f & pinFuncInfoMask }
func (f PinFunction) AF() int           { return int(f & pinFuncAFMask) }

// WithAF returns f using alternate-function index af.
func (f PinFunction) WithAF(af int) PinFunction {
	return f&^pinFuncAFMask | PinFunction(af)&pinFuncAFMask
}

// Role returns the device type and role without the AF index.
func (f PinFunction) Role() PinFunction { return f &^ pinFuncAFMask }

func (f PinFunction) IsTimer() bool {
	t := f.Type()
	return t >= FuncTimer1 && t <= FuncTimer16
}

func (f PinFunction) IsDAC() bool     { return f.Type() == FuncDAC }
func (f PinFunction) IsSoftPWM() bool { return f.Type() == FuncSoftPWM }

func (f PinFunction) IsUSART() bool {
	t := f.Type()
	return t >= FuncUSART1 && t < FuncUSART1+USARTCount<<8
}

func (f PinFunction) IsSPI() bool {
	t := f.Type()
	return t >= FuncSPI1 && t < FuncSPI1+SPICount<<8
}

func (f PinFunction) IsI2C() bool {
	t := f.Type()
	return t >= FuncI2C1 && t < FuncI2C1+I2CCount<<8
}

// IsPeripheral reports whether a bus peripheral (USART/SPI/I2C) owns the pin.
func (f PinFunction) IsPeripheral() bool { return f.IsUSART() || f.IsSPI() || f.IsI2C() }

// IsAnalogOutput reports whether f is a DAC, timer or software PWM output.
func (f PinFunction) IsAnalogOutput() bool { return f.IsDAC() || f.IsTimer() || f.IsSoftPWM() }

// Channel returns the 1-based timer/DAC channel.
func (f PinFunction) Channel() int { return int(f&0x30)>>4 + 1 }

// Pin returns the pin of a software PWM function.
func (f PinFunction) Pin() Pin {
	if !f.IsSoftPWM() {
		return PinUndefined
	}
	return Pin(f & 0xFF)
}

// Device returns the bus device that f belongs to, or DeviceNone.
func (f PinFunction) Device() Device {
	t := f.Type()
	switch {
	case f.IsUSART():
		return DeviceSerial1 + Device((t-FuncUSART1)>>8)
	case f.IsSPI():
		return DeviceSPI1 + Device((t-FuncSPI1)>>8)
	case f.IsI2C():
		return DeviceI2C1 + Device((t-FuncI2C1)>>8)
	}
	return DeviceNone
}

// deviceFunction returns the function type used by bus device d.
func deviceFunction(d Device) PinFunction {
	switch {
	case d.IsUSART():
		return FuncUSART1 + PinFunction(d-DeviceSerial1)<<8
	case d.IsSPI():
		return FuncSPI1 + PinFunction(d-DeviceSPI1)<<8
	case d.IsI2C():
		return FuncI2C1 + PinFunction(d-DeviceI2C1)<<8
	}
	return PinFunctionNone
}

var usartRoles = [...]string{"RX", "TX", "CK", "CTS"}
var spiRoles = [...]string{"SCK", "MISO", "MOSI"}
var i2cRoles = [...]string{"SCL", "SDA"}

// DeviceName returns the device part of the name, eg. "TIM2" or "USART1".
func (f PinFunction) DeviceName() string {
	t := f.Type()
	switch {
	case f.IsTimer():
		return "TIM" + itoa(int((t-FuncTimer1)>>8)+1)
	case f.IsDAC():
		return "DAC"
	case f.IsUSART():
		return "USART" + itoa(int((t-FuncUSART1)>>8)+1)
	case f.IsSPI():
		return "SPI" + itoa(int((t-FuncSPI1)>>8)+1)
	case f.IsI2C():
		return "I2C" + itoa(int((t-FuncI2C1)>>8)+1)
	case f.IsSoftPWM():
		return "SOFTPWM"
	}
	return "NONE"
}

// RoleName returns the role part of the name, eg. "CH1", "CH2N" or "TX".
func (f PinFunction) RoleName() string {
	idx := int(f&0x30) >> 4
	switch {
	case f.IsTimer():
		s := "CH" + itoa(idx+1)
		if f&InfoNegated != 0 {
			s += "N"
		}
		return s
	case f.IsDAC():
		return "CH" + itoa(idx+1)
	case f.IsUSART():
		return usartRoles[idx]
	case f.IsSPI():
		if idx < len(spiRoles) {
			return spiRoles[idx]
		}
	case f.IsI2C():
		if idx < len(i2cRoles) {
			return i2cRoles[idx]
		}
	case f.IsSoftPWM():
		return "D" + itoa(int(f.Pin()))
	}
	return ""
}

// String formats f as "TIM2_CH1:AF1"; the AF suffix is omitted when zero.
func (f PinFunction) String() string {
	if f == PinFunctionNone {
		return "NONE"
	}
	s := f.DeviceName() + "_" + f.RoleName()
	if !f.IsSoftPWM() && f.AF() != 0 {
		s += ":AF" + itoa(f.AF())
	}
	return s
}

// ParsePinFunction parses the String form, eg. "TIM1_CH2N:AF1",
// "USART2_TX:AF7", "DAC_CH1" or "I2C1_SDA".
func ParsePinFunction(s string) (PinFunction, bool) {
	af := 0
	for i := 0; i < len(s); i++ {
		if s[i] != ':' {
			continue
		}
		tail := s[i+1:]
		if len(tail) < 3 || tail[:2] != "AF" {
			return PinFunctionNone, false
		}
		n, ok := atoiRange(tail[2:], 0, 15)
		if !ok {
			return PinFunctionNone, false
		}
		af = n
		s = s[:i]
		break
	}

	dev, role, ok := cut(s, '_')
	if !ok {
		return PinFunctionNone, false
	}

	var f PinFunction
	switch {
	case dev == "DAC":
		f = FuncDAC
	case hasPrefix(dev, "TIM"):
		n, ok := atoiRange(dev[3:], 1, TimerCount)
		if !ok {
			return PinFunctionNone, false
		}
		f = FuncTimer1 + PinFunction(n-1)<<8
	case hasPrefix(dev, "USART"):
		n, ok := atoiRange(dev[5:], 1, USARTCount)
		if !ok {
			return PinFunctionNone, false
		}
		f = FuncUSART1 + PinFunction(n-1)<<8
	case hasPrefix(dev, "SPI"):
		n, ok := atoiRange(dev[3:], 1, SPICount)
		if !ok {
			return PinFunctionNone, false
		}
		f = FuncSPI1 + PinFunction(n-1)<<8
	case hasPrefix(dev, "I2C"):
		n, ok := atoiRange(dev[3:], 1, I2CCount)
		if !ok {
			return PinFunctionNone, false
		}
		f = FuncI2C1 + PinFunction(n-1)<<8
	default:
		return PinFunctionNone, false
	}

	info, ok := parseRole(f, role)
	if !ok {
		return PinFunctionNone, false
	}
	return (f | info).WithAF(af), true
}

func parseRole(f PinFunction, role string) (PinFunction, bool) {
	lookup := func(names []string) (PinFunction, bool) {
		for i, n := range names {
			if n == role {
				return PinFunction(i) << 4, true
			}
		}
		return 0, false
	}
	switch {
	case f.IsTimer(), f.IsDAC():
		if !hasPrefix(role, "CH") {
			return 0, false
		}
		num := role[2:]
		var info PinFunction
		if f.IsTimer() && len(num) > 0 && num[len(num)-1] == 'N' {
			info = InfoNegated
			num = num[:len(num)-1]
		}
		max := 4
		if f.IsDAC() {
			max = 2
		}
		ch, ok := atoiRange(num, 1, max)
		if !ok {
			return 0, false
		}
		return info | PinFunction(ch-1)<<4, true
	case f.IsUSART():
		return lookup(usartRoles[:])
	case f.IsSPI():
		return lookup(spiRoles[:])
	case f.IsI2C():
		return lookup(i2cRoles[:])
	}
	return 0, false
}

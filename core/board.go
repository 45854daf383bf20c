package core

// PortNone marks a pin index that is not wired on the board.
const PortNone byte = 0

// NoAnalogChannel marks a pin without an ADC input.
const NoAnalogChannel = -1

// PinInfo describes one entry of a board's pin table.
type PinInfo struct {
	Name          string        // eg. "A5" or "GP25"
	Port          byte          // 'A', 'B'... or PortNone
	Num           uint8         // number within the port
	AnalogChannel int           // ADC channel or NoAnalogChannel
	ADCs          uint8         // bitmask of ADC units that can sample the pin
	Functions     []PinFunction // alternate functions the pin can be wired to
	DefaultState  PinState      // power-on state; StateUndefined means input
}

// HasAnalog reports whether the pin has an ADC channel.
func (p *PinInfo) HasAnalog() bool { return p.AnalogChannel >= 0 }

// Function returns the wiring of role on this pin (AF index included), or
// PinFunctionNone.
func (p *PinInfo) Function(role PinFunction) PinFunction {
	role = role.Role()
	for _, f := range p.Functions {
		if f.Role() == role {
			return f
		}
	}
	return PinFunctionNone
}

// Board is a capability table: what every pin of a device can do.
type Board struct {
	Name           string
	Pins           []PinInfo
	USARTs         int // number of USART units present
	SPIs           int
	I2Cs           int
	ADCResolution  int     // bits
	VRef           float64 // nominal analog reference in volts
	SystemClockHz  uint32
	HasUSB         bool
	LEDs, Buttons  []Pin
	DefaultConsole Device
}

// IsPinValid reports whether pin indexes a wired entry of the table.
func (b *Board) IsPinValid(pin Pin) bool {
	return int(pin) < len(b.Pins) && b.Pins[pin].Port != PortNone
}

// Pin returns the table entry for pin, or nil when the pin is invalid.
func (b *Board) Pin(pin Pin) *PinInfo {
	if !b.IsPinValid(pin) {
		return nil
	}
	return &b.Pins[pin]
}

// PinByName looks a pin up by its board name.
func (b *Board) PinByName(name string) (Pin, bool) {
	for i := range b.Pins {
		if b.Pins[i].Port != PortNone && b.Pins[i].Name == name {
			return Pin(i), true
		}
	}
	return PinUndefined, false
}

// PowerOnState is the state a pin returns to on reset.
func (b *Board) PowerOnState(pin Pin) PinState {
	info := b.Pin(pin)
	if info == nil || info.DefaultState == StateUndefined {
		return StateInput
	}
	return info.DefaultState
}

// FindPinForFunction returns the first pin that can be wired to role
// (device type and role, eg. FuncUSART1|InfoUSARTTX) and the full
// function including its AF index.
func (b *Board) FindPinForFunction(role PinFunction) (Pin, PinFunction) {
	for i := range b.Pins {
		if b.Pins[i].Port == PortNone {
			continue
		}
		if f := b.Pins[i].Function(role); f != PinFunctionNone {
			return Pin(i), f
		}
	}
	return PinUndefined, PinFunctionNone
}

// EXTILine returns the interrupt line a pin's edges are routed to.
func (b *Board) EXTILine(pin Pin) int {
	info := b.Pin(pin)
	if info == nil {
		return -1
	}
	return int(info.Num) % EXTICount
}

package core

import "sync/atomic"

// PeripheralInfo is the configuration of a bus peripheral: *USARTInfo,
// *SPIInfo or *I2CInfo.
type PeripheralInfo interface {
	pinRoles() []pinRole
	check() error
}

// pinRole ties a pin field of an info struct to the role it plays.
type pinRole struct {
	pin      *Pin
	role     PinFunction // info bits only
	required bool
}

// Parity of a USART frame.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// USARTInfo configures a serial port.
type USARTInfo struct {
	Baud     uint32
	Bytesize uint8 // 7, 8 or 9
	Parity   Parity
	Stopbits uint8 // 1 or 2
	RX, TX   Pin
	CK, CTS  Pin
	XOnXOff  bool // software flow control
}

// NewUSARTInfo returns 9600 baud 8N1 with every pin left for Setup to pick.
func NewUSARTInfo() *USARTInfo {
	return &USARTInfo{
		Baud:     9600,
		Bytesize: 8,
		Parity:   ParityNone,
		Stopbits: 1,
		RX:       PinUndefined,
		TX:       PinUndefined,
		CK:       PinUndefined,
		CTS:      PinUndefined,
	}
}

func (u *USARTInfo) pinRoles() []pinRole {
	// TX is the one pin a port cannot work without.
	return []pinRole{
		{&u.TX, InfoUSARTTX, true},
		{&u.RX, InfoUSARTRX, false},
		{&u.CK, InfoUSARTCK, false},
		{&u.CTS, InfoUSARTCTS, false},
	}
}

func (u *USARTInfo) check() error {
	if u.Baud == 0 || u.Bytesize < 7 || u.Bytesize > 9 || u.Stopbits < 1 || u.Stopbits > 2 || u.Parity > ParityEven {
		return ErrInvalidConfig
	}
	return nil
}

// BitOrder of an SPI transfer.
type BitOrder uint8

const (
	MSBFirst BitOrder = iota
	LSBFirst
)

// SPIInfo configures an SPI controller.
type SPIInfo struct {
	Baud            uint32
	Mode            uint8 // 0-3: CPOL<<1 | CPHA
	Order           BitOrder
	NumBits         uint8
	SCK, MISO, MOSI Pin
}

// NewSPIInfo returns 100kHz, mode 0, MSB first, 8-bit words.
func NewSPIInfo() *SPIInfo {
	return &SPIInfo{
		Baud:    100000,
		Mode:    0,
		Order:   MSBFirst,
		NumBits: 8,
		SCK:     PinUndefined,
		MISO:    PinUndefined,
		MOSI:    PinUndefined,
	}
}

func (s *SPIInfo) pinRoles() []pinRole {
	return []pinRole{
		{&s.SCK, InfoSPISCK, true},
		{&s.MISO, InfoSPIMISO, false},
		{&s.MOSI, InfoSPIMOSI, false},
	}
}

func (s *SPIInfo) check() error {
	if s.Baud == 0 || s.Mode > 3 || s.NumBits == 0 || s.NumBits > 16 || s.Order > LSBFirst {
		return ErrInvalidConfig
	}
	return nil
}

// I2CInfo configures an I2C controller.
type I2CInfo struct {
	Bitrate      uint32
	SCL, SDA     Pin
	ClockStretch bool
}

// NewI2CInfo returns 100kHz with clock stretching allowed.
func NewI2CInfo() *I2CInfo {
	return &I2CInfo{
		Bitrate:      100000,
		SCL:          PinUndefined,
		SDA:          PinUndefined,
		ClockStretch: true,
	}
}

func (i *I2CInfo) pinRoles() []pinRole {
	return []pinRole{
		{&i.SCL, InfoI2CSCL, true},
		{&i.SDA, InfoI2CSDA, true},
	}
}

func (i *I2CInfo) check() error {
	if i.Bitrate == 0 {
		return ErrInvalidConfig
	}
	return nil
}

type deviceState struct {
	initialised atomic.Bool
	info        PeripheralInfo
	pins        []Pin
	tx          txRing
	i2cStarted  bool
}

// infoMatches reports whether info is the right kind for dev.
func infoMatches(dev Device, info PeripheralInfo) bool {
	switch info.(type) {
	case *USARTInfo:
		return dev.IsUSART()
	case *SPIInfo:
		return dev.IsSPI()
	case *I2CInfo:
		return dev.IsI2C()
	}
	return false
}

func defaultInfo(dev Device) PeripheralInfo {
	switch {
	case dev.IsUSART():
		return NewUSARTInfo()
	case dev.IsSPI():
		return NewSPIInfo()
	case dev.IsI2C():
		return NewI2CInfo()
	}
	return nil
}

// Setup configures dev. A nil info selects the defaults. Undefined pins are
// filled in from the board table where a required pin is missing, or where
// no pin at all was given. The info is updated in place with the pins used.
// Setting up an initialised device reconfigures it.
func (h *HAL) Setup(dev Device, info PeripheralInfo) error {
	if !dev.IsPeripheral() {
		return deviceErr("setup", dev, ErrInvalidDevice)
	}
	if info == nil {
		info = defaultInfo(dev)
	}
	if !infoMatches(dev, info) {
		return deviceErr("setup", dev, ErrInvalidDevice)
	}
	if err := info.check(); err != nil {
		return deviceErr("setup", dev, err)
	}

	devFn := deviceFunction(dev)
	roles := info.pinRoles()
	noneGiven := true
	for _, r := range roles {
		if *r.pin != PinUndefined {
			noneGiven = false
		}
	}

	bound := make([]PinFunction, len(roles))
	for i, r := range roles {
		if *r.pin == PinUndefined && (r.required || noneGiven) {
			p, fn := h.findFreePin(dev, devFn|r.role)
			if p == PinUndefined {
				if r.required {
					return deviceErr("setup", dev, ErrNoPinForFunction)
				}
				continue
			}
			*r.pin = p
			bound[i] = fn
			continue
		}
		if *r.pin == PinUndefined {
			continue
		}
		pinfo := h.board.Pin(*r.pin)
		if pinfo == nil {
			return deviceErr("setup", dev, pinErr("setup", *r.pin, ErrInvalidPin))
		}
		fn := pinfo.Function(devFn | r.role)
		if fn == PinFunctionNone {
			return deviceErr("setup", dev, pinErr("setup", *r.pin, ErrNoPinForFunction))
		}
		if cur := h.funcs[*r.pin]; cur.IsPeripheral() && cur.Device() != dev {
			return deviceErr("setup", dev, pinErr("setup", *r.pin, ErrPinInUse))
		}
		bound[i] = fn
	}

	st := &h.devices[dev]
	if st.initialised.Load() {
		h.releasePins(dev)
	}

	if err := h.b.SetupPeripheral(dev, info); err != nil {
		// A failed reconfigure leaves the device down rather than half set up.
		if st.initialised.Load() {
			h.Unsetup(dev)
		}
		return deviceErr("setup", dev, err)
	}

	st.pins = st.pins[:0]
	for i, r := range roles {
		if bound[i] == PinFunctionNone {
			continue
		}
		pin := *r.pin
		h.stopSoftPWM(pin)
		h.RemovePinTasks(pin)
		if wd := h.watchedDevice(pin); wd != DeviceNone {
			h.unwatch(wd, pin)
		}
		h.funcs[pin] = bound[i]
		h.b.SetState(pin, peripheralPinState(dev))
		st.pins = append(st.pins, pin)
	}
	if dev.IsUSART() && st.tx.buf == nil {
		st.tx.buf = make([]byte, h.txCapacity)
	}
	st.info = info
	st.initialised.Store(true)
	return nil
}

// findFreePin finds a pin able to play role that no other peripheral owns.
func (h *HAL) findFreePin(dev Device, role PinFunction) (Pin, PinFunction) {
	for i := range h.board.Pins {
		pin := Pin(i)
		info := h.board.Pin(pin)
		if info == nil {
			continue
		}
		if cur := h.funcs[pin]; cur.IsPeripheral() && cur.Device() != dev {
			continue
		}
		if fn := info.Function(role); fn != PinFunctionNone {
			return pin, fn
		}
	}
	return PinUndefined, PinFunctionNone
}

func peripheralPinState(dev Device) PinState {
	if dev.IsI2C() {
		return StateAFOpenDrain
	}
	return StateAFOutput
}

// Kick tells dev that data is waiting.
func (h *HAL) Kick(dev Device) error {
	if !dev.IsPeripheral() {
		return deviceErr("kick", dev, ErrInvalidDevice)
	}
	if !h.devices[dev].initialised.Load() {
		return deviceErr("kick", dev, ErrNotInitialised)
	}
	h.b.KickPeripheral(dev)
	return nil
}

// Unsetup releases dev and returns its pins to the undefined state.
// Unsetting an uninitialised device does nothing.
func (h *HAL) Unsetup(dev Device) error {
	if !dev.IsPeripheral() {
		return deviceErr("unsetup", dev, ErrInvalidDevice)
	}
	st := &h.devices[dev]
	if !st.initialised.Load() {
		return nil
	}
	st.initialised.Store(false)
	h.b.UnsetupPeripheral(dev)
	h.releasePins(dev)

	s := disableInterrupts()
	st.tx.reset()
	restoreInterrupts(s)
	st.info = nil
	st.i2cStarted = false
	return nil
}

func (h *HAL) releasePins(dev Device) {
	st := &h.devices[dev]
	for _, pin := range st.pins {
		if h.funcs[pin].Device() == dev {
			h.funcs[pin] = PinFunctionNone
			h.b.SetState(pin, StateUndefined)
		}
	}
	st.pins = st.pins[:0]
}

// IsDeviceInitialised reports whether Setup succeeded for dev.
func (h *HAL) IsDeviceInitialised(dev Device) bool {
	return dev.IsPeripheral() && h.devices[dev].initialised.Load()
}

// DeviceInfo returns the configuration dev was set up with, or nil.
func (h *HAL) DeviceInfo(dev Device) PeripheralInfo {
	if !h.IsDeviceInitialised(dev) {
		return nil
	}
	return h.devices[dev].info
}

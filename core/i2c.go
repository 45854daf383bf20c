// I2C support: controller transactions and a tinygo.org/x/drivers adapter.
package core

import "tinygo.org/x/drivers"

// maxI2CAddress is the highest 7-bit address.
const maxI2CAddress = 0x7F

func (h *HAL) checkI2C(op string, dev Device, addr uint16) error {
	if !dev.IsI2C() {
		return deviceErr(op, dev, ErrInvalidDevice)
	}
	if !h.devices[dev].initialised.Load() {
		return deviceErr(op, dev, ErrNotInitialised)
	}
	if addr > maxI2CAddress {
		return deviceErr(op, dev, ErrInvalidAddress)
	}
	return nil
}

// I2CWrite sends data to addr. With sendStop false the bus stays claimed
// so that the next transfer starts with a repeated start.
func (h *HAL) I2CWrite(dev Device, addr uint8, data []byte, sendStop bool) error {
	if err := h.checkI2C("i2c write", dev, uint16(addr)); err != nil {
		return err
	}
	st := &h.devices[dev]
	st.i2cStarted = !sendStop
	if err := h.b.I2CWrite(dev, addr, data, sendStop); err != nil {
		st.i2cStarted = false
		return deviceErr("i2c write", dev, err)
	}
	return nil
}

// I2CRead fills buf from addr.
func (h *HAL) I2CRead(dev Device, addr uint8, buf []byte, sendStop bool) error {
	if err := h.checkI2C("i2c read", dev, uint16(addr)); err != nil {
		return err
	}
	st := &h.devices[dev]
	st.i2cStarted = !sendStop
	if err := h.b.I2CRead(dev, addr, buf, sendStop); err != nil {
		st.i2cStarted = false
		return deviceErr("i2c read", dev, err)
	}
	return nil
}

// I2CStarted reports whether the last transfer on dev left the bus claimed.
func (h *HAL) I2CStarted(dev Device) bool {
	return dev.IsI2C() && h.devices[dev].i2cStarted
}

// I2CBus is a drivers.I2C view of an I2C device.
type I2CBus struct {
	h   *HAL
	dev Device
}

// Ensure compile-time conformance with drivers.I2C
var _ drivers.I2C = (*I2CBus)(nil)

// I2CBus returns a drivers.I2C for dev.
func (h *HAL) I2CBus(dev Device) (*I2CBus, error) {
	if !dev.IsI2C() {
		return nil, deviceErr("i2c bus", dev, ErrInvalidDevice)
	}
	return &I2CBus{h: h, dev: dev}, nil
}

// Tx writes w and then reads r, with a repeated start in between.
func (b *I2CBus) Tx(addr uint16, w, r []byte) error {
	if err := b.h.checkI2C("i2c tx", b.dev, addr); err != nil {
		return err
	}
	if len(w) > 0 || len(r) == 0 {
		if err := b.h.I2CWrite(b.dev, uint8(addr), w, len(r) == 0); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return b.h.I2CRead(b.dev, uint8(addr), r, true)
	}
	return nil
}

// ReadRegister reads len(buf) bytes starting at register reg.
func (b *I2CBus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf starting at register reg.
func (b *I2CBus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, reg)
	w = append(w, buf...)
	return b.Tx(uint16(addr), w, nil)
}

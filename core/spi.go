// SPI support: transfers on a configured controller and a
// tinygo.org/x/drivers adapter so sensor drivers can share the bus.
package core

import "tinygo.org/x/drivers"

// SPISend clocks tx out on dev while filling rx. Either may be nil.
func (h *HAL) SPISend(dev Device, tx, rx []byte) error {
	if !dev.IsSPI() {
		return deviceErr("spi send", dev, ErrInvalidDevice)
	}
	if !h.devices[dev].initialised.Load() {
		return deviceErr("spi send", dev, ErrNotInitialised)
	}
	if len(tx) == 0 && len(rx) == 0 {
		return nil
	}
	if err := h.b.SPITransfer(dev, tx, rx); err != nil {
		return deviceErr("spi send", dev, err)
	}
	return nil
}

// SPIBus is a drivers.SPI view of an SPI device.
type SPIBus struct {
	h   *HAL
	dev Device
}

// Ensure compile-time conformance with drivers.SPI
var _ drivers.SPI = (*SPIBus)(nil)

// SPIBus returns a drivers.SPI for dev. The device must be set up before
// the bus is used.
func (h *HAL) SPIBus(dev Device) (*SPIBus, error) {
	if !dev.IsSPI() {
		return nil, deviceErr("spi bus", dev, ErrInvalidDevice)
	}
	return &SPIBus{h: h, dev: dev}, nil
}

func (b *SPIBus) Tx(w, r []byte) error {
	return b.h.SPISend(b.dev, w, r)
}

func (b *SPIBus) Transfer(w byte) (byte, error) {
	var tx, rx [1]byte
	tx[0] = w
	err := b.h.SPISend(b.dev, tx[:], rx[:])
	return rx[0], err
}

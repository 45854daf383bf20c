package core

// Watch enables or disables edge interrupts on pin. Enabling returns the
// Device that the pin's IOEvents will carry; watching a pin that is already
// watched returns the same Device. Disabling returns DeviceNone, after which
// the old Device no longer matches the pin.
func (h *HAL) Watch(pin Pin, enable bool, flags WatchFlags) (Device, error) {
	if !h.board.IsPinValid(pin) {
		return DeviceNone, pinErr("watch", pin, ErrInvalidPin)
	}

	if !enable {
		if dev := h.watchedDevice(pin); dev != DeviceNone {
			h.unwatch(dev, pin)
		}
		return DeviceNone, nil
	}

	if dev := h.watchedDevice(pin); dev != DeviceNone {
		return dev, nil
	}
	if !h.CanWatch(pin) {
		return DeviceNone, pinErr("watch", pin, ErrCannotWatch)
	}

	dev := h.b.Watch(pin, true, flags)
	if !dev.IsEXTI() {
		return DeviceNone, pinErr("watch", pin, ErrCannotWatch)
	}

	s := disableInterrupts()
	h.watched[dev.Index()] = pin
	restoreInterrupts(s)
	return dev, nil
}

func (h *HAL) unwatch(dev Device, pin Pin) {
	s := disableInterrupts()
	h.watched[dev.Index()] = PinUndefined
	restoreInterrupts(s)
	h.b.Watch(pin, false, WatchNone)
}

// watchedDevice returns the EXTI device pin is watched on, or DeviceNone.
func (h *HAL) watchedDevice(pin Pin) Device {
	s := disableInterrupts()
	defer restoreInterrupts(s)
	for line, p := range h.watched {
		if p == pin {
			return EXTI(line)
		}
	}
	return DeviceNone
}

// CanWatch reports whether Watch(pin, true, ...) would succeed. It is false
// for pins bound to a bus peripheral and for pins whose interrupt line is
// held by another watched pin.
func (h *HAL) CanWatch(pin Pin) bool {
	if !h.board.IsPinValid(pin) {
		return false
	}
	if h.funcs[pin].IsPeripheral() {
		return false
	}
	if line := h.board.EXTILine(pin); line >= 0 {
		s := disableInterrupts()
		holder := h.watched[line]
		restoreInterrupts(s)
		if holder != PinUndefined && holder != pin {
			return false
		}
	}
	return h.b.CanWatch(pin)
}

// IsEventForPin reports whether events on dev come from pin.
func (h *HAL) IsEventForPin(dev Device, pin Pin) bool {
	if !dev.IsEXTI() || pin == PinUndefined {
		return false
	}
	s := disableInterrupts()
	defer restoreInterrupts(s)
	return h.watched[dev.Index()] == pin
}

// WatchedPin returns the pin behind dev, or PinUndefined.
func (h *HAL) WatchedPin(dev Device) Pin {
	if !dev.IsEXTI() {
		return PinUndefined
	}
	s := disableInterrupts()
	defer restoreInterrupts(s)
	return h.watched[dev.Index()]
}

// WatchedPinLevel reads the current level of the pin behind dev.
func (h *HAL) WatchedPinLevel(dev Device) bool {
	if !dev.IsEXTI() {
		return false
	}
	return h.b.WatchedPinLevel(dev)
}

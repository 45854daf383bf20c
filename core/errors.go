package core

import "errors"

// Sentinel errors returned by the checked HAL layer. Interrupt-context entry
// points never return errors; they count and drop instead.
var (
	ErrInvalidPin       = errors.New("invalid pin")
	ErrPinInUse         = errors.New("pin in use by a peripheral")
	ErrNoAnalogInput    = errors.New("pin has no analog input")
	ErrNoAnalogOutput   = errors.New("no analog output available for pin")
	ErrInvalidDevice    = errors.New("invalid device")
	ErrNotInitialised   = errors.New("device not initialised")
	ErrUnsupported      = errors.New("not supported by backend")
	ErrNoPinForFunction = errors.New("no pin available for function")
	ErrInvalidTimeout   = errors.New("invalid watchdog timeout")
	ErrInvalidState     = errors.New("invalid pin state")
	ErrCannotWatch      = errors.New("pin cannot be watched")
	ErrTXOverflow       = errors.New("transmit buffer full")
	ErrInvalidConfig    = errors.New("invalid peripheral configuration")
	ErrInvalidAddress   = errors.New("invalid i2c address")
)

// PinError reports a failed operation on a pin.
type PinError struct {
	Op  string
	Pin Pin
	Err error
}

func (e *PinError) Error() string {
	return e.Op + " pin " + itoa(int(e.Pin)) + ": " + e.Err.Error()
}

func (e *PinError) Unwrap() error { return e.Err }

func pinErr(op string, pin Pin, err error) error {
	return &PinError{Op: op, Pin: pin, Err: err}
}

// DeviceError reports a failed operation on a device.
type DeviceError struct {
	Op     string
	Device Device
	Err    error
}

func (e *DeviceError) Error() string {
	return e.Op + " " + e.Device.String() + ": " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error { return e.Err }

func deviceErr(op string, dev Device, err error) error {
	return &DeviceError{Op: op, Device: dev, Err: err}
}

package core

// SerialNumber returns a unique device identifier.
func (h *HAL) SerialNumber() []byte { return h.b.SerialNumber() }

func (h *HAL) IsUSBConnected() bool { return h.b.IsUSBConnected() }

// RandomNumber returns a hardware random number where available.
func (h *HAL) RandomNumber() uint32 { return h.b.RandomNumber() }

// Temperature returns the die temperature in degrees C, or NaN.
func (h *HAL) Temperature() float64 { return h.b.Temperature() }

// VRef returns the analog reference voltage, or NaN.
func (h *HAL) VRef() float64 { return h.b.VRef() }

func (h *HAL) SystemClock() uint32 { return h.b.SystemClock() }

// SetSystemClock asks for a new core clock and returns the rate applied.
// The time base keeps its tick rate.
func (h *HAL) SetSystemClock(hz uint32) uint32 { return h.b.SetSystemClock(hz) }

package core

// Device names an interrupt source or a bus peripheral. EXTI devices are the
// handles returned by Watch; the rest are configured through Setup.
type Device uint8

const (
	DeviceNone    Device = 0
	DeviceEXTI0   Device = 1
	DeviceSerial1 Device = DeviceEXTI0 + EXTICount
	DeviceSPI1    Device = DeviceSerial1 + USARTCount
	DeviceI2C1    Device = DeviceSPI1 + SPICount
	DeviceCount   Device = DeviceI2C1 + I2CCount
)

// EXTI returns the watch handle for interrupt line n (0-15).
func EXTI(n int) Device {
	if n < 0 || n >= EXTICount {
		return DeviceNone
	}
	return DeviceEXTI0 + Device(n)
}

// Serial returns USART n (1-6).
func Serial(n int) Device { return numbered(DeviceSerial1, n, USARTCount) }

// SPI returns SPI bus n (1-3).
func SPI(n int) Device { return numbered(DeviceSPI1, n, SPICount) }

// I2C returns I2C bus n (1-3).
func I2C(n int) Device { return numbered(DeviceI2C1, n, I2CCount) }

func numbered(first Device, n, count int) Device {
	if n < 1 || n > count {
		return DeviceNone
	}
	return first + Device(n-1)
}

func (d Device) IsEXTI() bool  { return d >= DeviceEXTI0 && d < DeviceSerial1 }
func (d Device) IsUSART() bool { return d >= DeviceSerial1 && d < DeviceSPI1 }
func (d Device) IsSPI() bool   { return d >= DeviceSPI1 && d < DeviceI2C1 }
func (d Device) IsI2C() bool   { return d >= DeviceI2C1 && d < DeviceCount }

// IsPeripheral reports whether d can be passed to Setup.
func (d Device) IsPeripheral() bool { return d >= DeviceSerial1 && d < DeviceCount }

// Index returns the line number of an EXTI device (0-based) or the unit
// number of a peripheral (1-based). It returns -1 for DeviceNone.
func (d Device) Index() int {
	switch {
	case d.IsEXTI():
		return int(d - DeviceEXTI0)
	case d.IsUSART():
		return int(d-DeviceSerial1) + 1
	case d.IsSPI():
		return int(d-DeviceSPI1) + 1
	case d.IsI2C():
		return int(d-DeviceI2C1) + 1
	}
	return -1
}

func (d Device) String() string {
	switch {
	case d.IsEXTI():
		return "EXTI" + itoa(d.Index())
	case d.IsUSART():
		return "Serial" + itoa(d.Index())
	case d.IsSPI():
		return "SPI" + itoa(d.Index())
	case d.IsI2C():
		return "I2C" + itoa(d.Index())
	}
	return "none"
}

// ParseDevice accepts the names produced by String.
func ParseDevice(s string) (Device, bool) {
	type prefix struct {
		name  string
		first Device
		lo    int
		count int
	}
	for _, p := range [...]prefix{
		{"EXTI", DeviceEXTI0, 0, EXTICount - 1},
		{"Serial", DeviceSerial1, 1, USARTCount},
		{"SPI", DeviceSPI1, 1, SPICount},
		{"I2C", DeviceI2C1, 1, I2CCount},
	} {
		if !hasPrefix(s, p.name) {
			continue
		}
		n, ok := atoiRange(s[len(p.name):], p.lo, p.count)
		if !ok {
			return DeviceNone, false
		}
		return p.first + Device(n-p.lo), true
	}
	return DeviceNone, false
}

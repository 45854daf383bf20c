package core

// PeripheralDriver configures bus peripherals and moves their data. The HAL
// resolves pins before calling SetupPeripheral, so every required pin in
// info is defined.
type PeripheralDriver interface {
	SetupPeripheral(dev Device, info PeripheralInfo) error

	// KickPeripheral tells the peripheral that data is waiting, eg. that
	// the USART should start draining IRQHandler.TakeTX.
	KickPeripheral(dev Device)

	UnsetupPeripheral(dev Device)

	// SPITransfer clocks out tx while filling rx. Either may be nil; the
	// longer slice sets the transfer length.
	SPITransfer(dev Device, tx, rx []byte) error

	// I2CWrite and I2CRead address a 7-bit target. sendStop=false leaves
	// the bus claimed for a repeated start.
	I2CWrite(dev Device, addr uint8, data []byte, sendStop bool) error
	I2CRead(dev Device, addr uint8, buf []byte, sendStop bool) error
}

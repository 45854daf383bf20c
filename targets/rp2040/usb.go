//go:build rp2040

package main

import "machine"

// machine.Serial is the USB CDC-ACM port; the runtime sets up its
// descriptors.
func initUSB() {
	if err := machine.Serial.Configure(machine.UARTConfig{}); err != nil {
		return
	}
}

// readUSB moves whatever the host has sent into buf without blocking.
func readUSB(buf []byte) int {
	n := 0
	for n < len(buf) && machine.Serial.Buffered() > 0 {
		c, err := machine.Serial.ReadByte()
		if err != nil {
			break
		}
		buf[n] = c
		n++
	}
	return n
}

func writeUSB(data []byte) {
	// Writes fail while no host has the port open; drop them.
	_, _ = machine.Serial.Write(data)
}

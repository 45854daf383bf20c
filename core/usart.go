package core

// maxTXWaits bounds how long USARTWrite waits for room, in 100us steps.
const maxTXWaits = 1000

// txRing buffers bytes between USARTWrite and the backend's transmitter.
// Guarded by the interrupt lock.
type txRing struct {
	buf        []byte
	head, tail int
	n          int
}

func (r *txRing) push(data []byte) int {
	written := 0
	for written < len(data) && r.n < len(r.buf) {
		r.buf[r.tail] = data[written]
		r.tail = (r.tail + 1) % len(r.buf)
		r.n++
		written++
	}
	return written
}

func (r *txRing) pop(out []byte) int {
	read := 0
	for read < len(out) && r.n > 0 {
		out[read] = r.buf[r.head]
		r.head = (r.head + 1) % len(r.buf)
		r.n--
		read++
	}
	return read
}

func (r *txRing) reset() {
	r.head, r.tail, r.n = 0, 0, 0
}

// USARTWrite queues data for transmission and kicks the port. When the
// buffer is full it waits, briefly, for the transmitter to drain it.
func (h *HAL) USARTWrite(dev Device, data []byte) error {
	if !dev.IsUSART() {
		return deviceErr("write", dev, ErrInvalidDevice)
	}
	st := &h.devices[dev]
	if !st.initialised.Load() {
		return deviceErr("write", dev, ErrNotInitialised)
	}

	waits := 0
	for len(data) > 0 {
		s := disableInterrupts()
		n := st.tx.push(data)
		restoreInterrupts(s)

		data = data[n:]
		h.b.KickPeripheral(dev)
		if n > 0 {
			waits = 0
			continue
		}
		if waits++; waits > maxTXWaits {
			return deviceErr("write", dev, ErrTXOverflow)
		}
		h.b.DelayMicroseconds(100)
	}
	return nil
}

// TakeTX moves queued transmit bytes for dev into buf. Called by backends.
func (h *HAL) TakeTX(dev Device, buf []byte) int {
	if !dev.IsUSART() {
		return 0
	}
	s := disableInterrupts()
	defer restoreInterrupts(s)
	return h.devices[dev].tx.pop(buf)
}

// TXPending reports whether any USART still has bytes to send.
func (h *HAL) TXPending() bool {
	s := disableInterrupts()
	defer restoreInterrupts(s)
	for d := DeviceSerial1; d < DeviceSPI1; d++ {
		if h.devices[d].tx.n > 0 {
			return true
		}
	}
	return false
}

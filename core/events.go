package core

import "context"

// IOEventDataMax is the number of received bytes one IOEvent can carry.
const IOEventDataMax = 8

// IOEvent is one entry of the interrupt-to-main-context queue: either an
// edge on a watched pin (EXTI device) or a chunk of USART receive data.
type IOEvent struct {
	Device Device
	Time   SysTime
	Level  bool  // pin level after the edge
	Len    uint8 // valid bytes in Data
	Data   [IOEventDataMax]byte
}

// Bytes returns the received data carried by a USART event.
func (e *IOEvent) Bytes() []byte { return e.Data[:e.Len] }

// EventQueue is a fixed-size ring. Pushing into a full queue drops the new
// event and counts it; nothing ever blocks. The HAL guards it with
// interrupts disabled.
type EventQueue struct {
	buf        []IOEvent
	head, tail int // next read, next write
	n          int
	dropped    uint32
}

// NewEventQueue returns a queue with room for size events.
func NewEventQueue(size int) *EventQueue {
	return &EventQueue{buf: make([]IOEvent, size)}
}

func (q *EventQueue) push(ev IOEvent) bool {
	if q.n == len(q.buf) {
		q.dropped++
		return false
	}
	q.buf[q.tail] = ev
	q.tail = (q.tail + 1) % len(q.buf)
	q.n++
	return true
}

func (q *EventQueue) pop() (IOEvent, bool) {
	if q.n == 0 {
		return IOEvent{}, false
	}
	ev := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return ev, true
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int { return q.n }

// Dropped returns the number of events lost to overflow.
func (q *EventQueue) Dropped() uint32 { return q.dropped }

// WatchEdge queues an edge seen on the pin behind dev. Edges on a line
// that is no longer watched are dropped.
func (h *HAL) WatchEdge(dev Device, level bool, at SysTime) {
	ev := IOEvent{Device: dev, Time: at, Level: level}

	s := enterInterrupt()
	if !dev.IsEXTI() || h.watched[dev.Index()] == PinUndefined {
		exitInterrupt(s)
		return
	}
	if h.events.push(ev) {
		RecordTiming(EvtWatchEdge, uint8(dev), at, 0, b2u(level))
	} else {
		RecordTiming(EvtEventDropped, uint8(dev), at, 0, h.events.Dropped())
	}
	exitInterrupt(s)

	h.signal()
}

// PushRX queues bytes received on a USART, split over as many events as
// needed.
func (h *HAL) PushRX(dev Device, data []byte) {
	if len(data) == 0 {
		return
	}
	now := h.b.Now()

	s := enterInterrupt()
	for len(data) > 0 {
		ev := IOEvent{Device: dev, Time: now}
		ev.Len = uint8(copy(ev.Data[:], data))
		data = data[ev.Len:]
		if !h.events.push(ev) {
			RecordTiming(EvtEventDropped, uint8(dev), now, uint64(len(data)), h.events.Dropped())
		}
	}
	exitInterrupt(s)

	h.signal()
}

// signal sets the pending flag and, if it was clear, wakes the main loop.
// Only the clear-to-set transition notifies, so a burst of edges costs one
// wake-up.
func (h *HAL) signal() {
	if !h.pending.CompareAndSwap(false, true) {
		return
	}
	select {
	case h.wake <- struct{}{}:
	default:
	}
	if h.onEvent != nil {
		h.onEvent()
	}
}

// PendingEvent reports whether events arrived since the last Idle.
func (h *HAL) PendingEvent() bool {
	return h.pending.Load()
}

// Wait blocks until an event is pending or ctx is done. It may return early
// with no event pending.
func (h *HAL) Wait(ctx context.Context) error {
	if h.pending.Load() {
		return nil
	}
	select {
	case <-h.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Idle clears the pending flag and hands every queued event to fn in arrival
// order. The flag is cleared first so that an event queued while draining
// leaves it set for the next pass.
func (h *HAL) Idle(fn func(IOEvent)) int {
	h.pending.Store(false)
	n := 0
	for {
		s := disableInterrupts()
		ev, ok := h.events.pop()
		restoreInterrupts(s)
		if !ok {
			return n
		}
		fn(ev)
		n++
	}
}

// DroppedEvents returns how many events were lost to queue overflow.
func (h *HAL) DroppedEvents() uint32 {
	s := disableInterrupts()
	defer restoreInterrupts(s)
	return h.events.Dropped()
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

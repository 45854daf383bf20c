package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a timing-critical event for post-mortem analysis
type TimingEvent struct {
	EventType uint8   // Event type code
	ID        uint8   // Device or pin the event concerns
	Clock     SysTime // System time at event
	Value1    uint64  // Context-dependent value
	Value2    uint32  // Context-dependent value
}

// Event type codes
const (
	EvtTimerStart   = 1 // utility timer started (v1 = due)
	EvtTimerFire    = 2 // utility timer fired (v1 = intended expiry, v2 = queued tasks)
	EvtTimerResched = 3 // utility timer rescheduled (v1 = due)
	EvtTimerStop    = 4 // utility timer disabled
	EvtWatchEdge    = 5 // edge queued (id = device, v2 = level)
	EvtEventDropped = 6 // event queue overflow (id = device, v2 = total drops)
	EvtSetTime      = 7 // clock overwritten (v1 = new time)
	EvtTaskLate     = 8 // task ran late (id = pin, v1 = intended time)
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Timing capture ring buffer (non-blocking, for post-mortem).
	// Written with interrupts disabled.
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8        // Next write position
	timingEnabled  bool  = true // Always capture timing events

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, slog etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// RecordTiming captures a timing event in the ring buffer.
// Callers hold the interrupt lock.
func RecordTiming(eventType, id uint8, clock SysTime, value1 uint64, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		ID:        id,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// TimingEvents returns the recorded events, oldest first.
func TimingEvents() []TimingEvent {
	s := disableInterrupts()
	defer restoreInterrupts(s)

	out := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// String formats the event for a log line.
func (e TimingEvent) String() string {
	return timingEventName(e.EventType) +
		" id=" + itoa(int(e.ID)) +
		" clock=" + utoa64(uint64(e.Clock)) +
		" v1=" + utoa64(e.Value1) +
		" v2=" + utoa64(uint64(e.Value2))
}

func timingEventName(code uint8) string {
	switch code {
	case EvtTimerStart:
		return "TIMER_START"
	case EvtTimerFire:
		return "TIMER_FIRE"
	case EvtTimerResched:
		return "TIMER_RESCHED"
	case EvtTimerStop:
		return "TIMER_STOP"
	case EvtWatchEdge:
		return "WATCH_EDGE"
	case EvtEventDropped:
		return "EVENT_DROPPED!"
	case EvtSetTime:
		return "SET_TIME"
	case EvtTaskLate:
		return "TASK_LATE!"
	}
	return "UNKNOWN"
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error)
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + evt.String())
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	s := disableInterrupts()
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
	restoreInterrupts(s)
}

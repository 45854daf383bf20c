//go:build !tinygo

package core

import (
	"sync"
	"sync/atomic"
)

// State is the saved interrupt state. On the host, "interrupts disabled"
// means holding irqMu; interrupt entry points take the same lock so that a
// backend goroutine standing in for an ISR never runs concurrently with a
// main-context critical section.
type State uintptr

var (
	irqMu     sync.Mutex
	irqActive atomic.Int32
)

// disableInterrupts enters a critical section. Not reentrant.
func disableInterrupts() State {
	irqMu.Lock()
	return 0
}

// restoreInterrupts leaves a critical section.
func restoreInterrupts(state State) {
	irqMu.Unlock()
}

// enterInterrupt is called at the top of every interrupt entry point.
func enterInterrupt() State {
	irqMu.Lock()
	irqActive.Add(1)
	return 0
}

func exitInterrupt(state State) {
	irqActive.Add(-1)
	irqMu.Unlock()
}

// inInterrupt reports whether an interrupt entry point is running.
func inInterrupt() bool {
	return irqActive.Load() > 0
}

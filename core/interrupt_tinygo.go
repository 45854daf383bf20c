//go:build tinygo

package core

import "runtime/interrupt"

// State is the saved interrupt state.
type State = interrupt.State

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state State) {
	interrupt.Restore(state)
}

// enterInterrupt masks nested interrupts for the duration of a handler.
func enterInterrupt() State {
	return interrupt.Disable()
}

func exitInterrupt(state State) {
	interrupt.Restore(state)
}

func inInterrupt() bool {
	return interrupt.In()
}

package core

// Pin identifies a physical I/O terminal by its index in the board table.
// Not every index below len(Board.Pins) is wired; see Board.IsPinValid.
type Pin uint8

// PinUndefined marks an unspecified pin (eg. "let the backend choose").
const PinUndefined Pin = 0xFF

// PinState is the configured mode of a pin.
type PinState uint8

const (
	StateUndefined PinState = iota
	StateOutput
	StateOutputOpenDrain
	StateOutputOpenDrainPullUp
	StateInput
	StateInputPullUp
	StateInputPullDown
	StateAnalog
	StateAFOutput
	StateAFOpenDrain
	stateCount
)

const (
	PinStateMask PinState = 0x0F // mode bits
	PinStateIsOn PinState = 0x10 // set by backends for outputs currently driven high
)

var pinStateNames = [stateCount]string{
	StateUndefined:             "undefined",
	StateOutput:                "output",
	StateOutputOpenDrain:       "opendrain",
	StateOutputOpenDrainPullUp: "opendrain_pullup",
	StateInput:                 "input",
	StateInputPullUp:           "input_pullup",
	StateInputPullDown:         "input_pulldown",
	StateAnalog:                "analog",
	StateAFOutput:              "af_output",
	StateAFOpenDrain:           "af_opendrain",
}

// Mode strips the on/off bit.
func (s PinState) Mode() PinState { return s & PinStateMask }

// IsOn reports whether PinStateIsOn is set.
func (s PinState) IsOn() bool { return s&PinStateIsOn != 0 }

// IsOutput reports whether the pin drives a digital level as plain GPIO.
func (s PinState) IsOutput() bool {
	switch s.Mode() {
	case StateOutput, StateOutputOpenDrain, StateOutputOpenDrainPullUp:
		return true
	}
	return false
}

// IsInput reports whether the pin is a digital input.
func (s PinState) IsInput() bool {
	switch s.Mode() {
	case StateInput, StateInputPullUp, StateInputPullDown:
		return true
	}
	return false
}

// IsAF reports whether a peripheral owns the pin's output driver.
func (s PinState) IsAF() bool {
	m := s.Mode()
	return m == StateAFOutput || m == StateAFOpenDrain
}

func (s PinState) valid() bool { return s.Mode() < stateCount }

func (s PinState) String() string {
	if !s.valid() {
		return "unknown"
	}
	return pinStateNames[s.Mode()]
}

// ParsePinState converts a mode name (as returned by String) back to a state.
func ParsePinState(name string) (PinState, bool) {
	for i, n := range pinStateNames {
		if n == name {
			return PinState(i), true
		}
	}
	return StateUndefined, false
}

// WatchFlags tune a pin watch.
type WatchFlags uint8

const (
	WatchNone      WatchFlags = 0
	WatchHighSpeed WatchFlags = 1 << 0 // higher accuracy at the cost of power draw
)

// AnalogOutputFlags select how WriteAnalog may synthesise its output.
type AnalogOutputFlags uint8

const (
	AnalogOutputNone          AnalogOutputFlags = 0
	AnalogOutputAllowSoftware AnalogOutputFlags = 1 << 0 // fall back to software PWM
	AnalogOutputForceSoftware AnalogOutputFlags = 1 << 1 // always use software PWM
)

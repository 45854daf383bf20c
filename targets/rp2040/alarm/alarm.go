// Package alarm keeps the state of the RP2040 utility timer. The hardware
// alarm compares only the low 32 bits of the microsecond counter, so a
// period is reached in hops, and every expiry becomes the base that the
// next reschedule is measured from.
package alarm

const (
	// MaxHop is the longest distance programmed into the compare register.
	MaxHop = 1 << 30
	// MinLead keeps an alarm from being set so close that it has passed
	// before the register write lands.
	MinLead = 2
)

// Timer is a single-shot timer in raw counter ticks. The zero value is
// disabled.
type Timer struct {
	enabled bool   // has a base to reschedule from
	armed   bool   // an expiry is pending
	base    uint64 // previous intended expiry
	due     uint64
}

// Start arms the timer period ticks after now. A zero period is one tick.
func (t *Timer) Start(now, period uint64) {
	if period == 0 {
		period = 1
	}
	t.base = now
	t.arm(now + period)
}

// Reschedule arms the timer period ticks after the previous intended
// expiry. On a disabled timer it behaves like Start.
func (t *Timer) Reschedule(now, period uint64) {
	if period == 0 {
		period = 1
	}
	if !t.enabled {
		t.Start(now, period)
		return
	}
	t.arm(t.base + period)
}

// Disable stops the timer. It is the only way to clear enabled.
func (t *Timer) Disable() {
	t.enabled = false
	t.armed = false
}

func (t *Timer) arm(due uint64) {
	t.enabled = true
	t.armed = true
	t.due = due
}

// Target returns the counter value to program into the compare register.
func (t *Timer) Target(now uint64) uint64 {
	at := t.due
	if at < now+MinLead {
		at = now + MinLead
	}
	if at-now > MaxHop {
		at = now + MaxHop
	}
	return at
}

// Expire handles a compare match at now. It returns true when the pending
// expiry has been reached, after which the timer is no longer armed but
// stays enabled with its base moved to the expiry.
func (t *Timer) Expire(now uint64) bool {
	if !t.armed || now < t.due {
		return false
	}
	t.armed = false
	t.base = t.due
	return true
}

// Armed reports whether an expiry is pending.
func (t *Timer) Armed() bool { return t.armed }

// Due returns the pending expiry.
func (t *Timer) Due() (uint64, bool) { return t.due, t.armed }

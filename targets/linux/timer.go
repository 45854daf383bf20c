package linux

import (
	"time"

	"github.com/jonboulle/clockwork"

	"gohal/core"
)

// utilTimer is the single-shot utility timer, backed by a clock callback.
// gen invalidates callbacks that were already in flight when the timer was
// re-armed or disabled.
type utilTimer struct {
	t       clockwork.Timer
	gen     uint64
	enabled bool
	armed   bool
	base    core.SysTime // previous intended expiry
	due     core.SysTime
}

func (l *Linux) UtilTimerStart(period core.SysTime) {
	if period == 0 {
		period = 1
	}
	now := l.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timer.enabled = true
	l.timer.base = now
	l.armLocked(now, now+period)
}

// UtilTimerReschedule measures period from the previous intended expiry.
// Jitter is bounded by the Go scheduler, typically well under a
// millisecond, and does not accumulate.
func (l *Linux) UtilTimerReschedule(period core.SysTime) {
	if period == 0 {
		period = 1
	}
	now := l.Now()
	l.mu.Lock()
	if !l.timer.enabled {
		l.mu.Unlock()
		l.UtilTimerStart(period)
		return
	}
	defer l.mu.Unlock()
	l.armLocked(now, l.timer.base+period)
}

func (l *Linux) UtilTimerDisable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timer.enabled = false
	l.disarmLocked()
}

func (l *Linux) armLocked(now, due core.SysTime) {
	l.disarmLocked()
	l.timer.armed = true
	l.timer.due = due
	gen := l.timer.gen

	var d time.Duration
	if due > now {
		d = time.Duration(due-now) * time.Microsecond
	}
	l.timer.t = l.clock.AfterFunc(d, func() { l.expire(gen, due) })
}

func (l *Linux) disarmLocked() {
	l.timer.gen++
	l.timer.armed = false
	if l.timer.t != nil {
		l.timer.t.Stop()
		l.timer.t = nil
	}
}

func (l *Linux) expire(gen uint64, due core.SysTime) {
	l.mu.Lock()
	if gen != l.timer.gen || !l.timer.armed {
		l.mu.Unlock()
		return
	}
	l.timer.armed = false
	l.timer.base = due
	irq := l.irq
	l.mu.Unlock()

	if irq != nil {
		irq.UtilTimerExpired()
	}
	l.poke()
}

// TimerDue reports when the utility timer will next fire.
func (l *Linux) TimerDue() (core.SysTime, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timer.due, l.timer.armed
}

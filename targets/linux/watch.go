package linux

import (
	"periph.io/x/conn/v3/gpio"

	"gohal/core"
)

// watcher stands in for an EXTI line: a goroutine blocked on the pin's
// edge detector.
type watcher struct {
	pin   core.Pin
	io    gpio.PinIO
	flags core.WatchFlags
	stop  chan struct{}
}

func (l *Linux) CanWatch(p core.Pin) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pins[p] != nil
}

func (l *Linux) Watch(p core.Pin, enable bool, flags core.WatchFlags) core.Device {
	line := l.board.EXTILine(p)
	if line < 0 {
		return core.DeviceNone
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	io := l.pins[p]
	w := l.watches[line]

	if !enable {
		if w != nil && w.pin == p {
			l.stopWatchLocked(line)
			l.watched[p] = false
			if err := io.In(pull(l.states[p]), gpio.NoEdge); err != nil {
				core.DebugPrintln("[linux] unwatch " + io.Name() + ": " + err.Error())
			}
		}
		return core.DeviceNone
	}
	if io == nil || (w != nil && w.pin != p) {
		return core.DeviceNone
	}
	if w != nil {
		w.flags = flags
		return core.EXTI(line)
	}

	st := l.states[p]
	if !st.IsInput() {
		st = core.StateInput
	}
	if err := io.In(pull(st), gpio.BothEdges); err != nil {
		core.DebugPrintln("[linux] watch " + io.Name() + ": " + err.Error())
		return core.DeviceNone
	}
	w = &watcher{
		pin:   p,
		io:    io,
		flags: flags,
		stop:  make(chan struct{}),
	}
	l.watches[line] = w
	l.watched[p] = true
	go l.watchLoop(core.EXTI(line), w)
	return core.EXTI(line)
}

// stopWatchLocked signals the line's goroutine to exit. It does not wait:
// the goroutine may be blocked in WaitForEdge for up to EdgePoll.
func (l *Linux) stopWatchLocked(line int) {
	w := l.watches[line]
	if w == nil {
		return
	}
	close(w.stop)
	l.watched[w.pin] = false
	l.watches[line] = nil
}

func (l *Linux) watchLoop(dev core.Device, w *watcher) {
	for {
		select {
		case <-w.stop:
			return
		default:
		}
		if !w.io.WaitForEdge(l.cfg.EdgePoll) {
			continue
		}
		at := l.Now()
		lvl := w.io.Read() == gpio.High

		// The line may have been handed to another pin while we waited.
		l.mu.Lock()
		current := l.watches[dev.Index()] == w
		irq := l.irq
		l.mu.Unlock()
		if !current {
			return
		}
		if irq != nil {
			irq.WatchEdge(dev, lvl, at)
		}
		l.poke()
	}
}

func (l *Linux) WatchedPinLevel(dev core.Device) bool {
	if !dev.IsEXTI() {
		return false
	}
	l.mu.Lock()
	w := l.watches[dev.Index()]
	l.mu.Unlock()
	if w == nil {
		return false
	}
	return w.io.Read() == gpio.High
}

// WatchFlags returns the flags a line was enabled with.
func (l *Linux) WatchFlags(dev core.Device) (core.WatchFlags, bool) {
	if !dev.IsEXTI() {
		return 0, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if w := l.watches[dev.Index()]; w != nil {
		return w.flags, true
	}
	return 0, false
}

package core

import "slices"

// Task is an action run by the utility timer handler at WakeTime.
// Handlers run in interrupt context: they may use the unchecked fast paths
// (SetDigital, SetOutputValue) but not the checked HAL methods.
type Task struct {
	WakeTime SysTime
	Handler  func(*Task) uint8
	Pin      Pin // pin the task drives, PinUndefined if none
	// Pins lists the pins of a task that drives several. RemovePin takes a
	// pin out of the list and drops the task once the list is empty.
	Pins   []Pin
	next   *Task
	queued bool
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1 // handler updated WakeTime and wants to run again
)

// TaskQueue is an intrusive list of tasks sorted by WakeTime. Tasks with
// equal WakeTime run in insertion order. It does no locking; the HAL
// guards it with interrupts disabled.
type TaskQueue struct {
	head *Task
	n    int
}

// Add inserts t in sorted order. Adding a queued task moves it.
func (q *TaskQueue) Add(t *Task) {
	if t.queued {
		q.Remove(t)
	}
	t.queued = true
	q.n++

	if q.head == nil || t.WakeTime < q.head.WakeTime {
		t.next = q.head
		q.head = t
		return
	}

	current := q.head
	for current.next != nil && current.next.WakeTime <= t.WakeTime {
		current = current.next
	}

	t.next = current.next
	current.next = t
}

// Remove unlinks t, reporting whether it was queued.
func (q *TaskQueue) Remove(t *Task) bool {
	if !t.queued {
		return false
	}
	for p := &q.head; *p != nil; p = &(*p).next {
		if *p == t {
			*p = t.next
			t.next = nil
			t.queued = false
			q.n--
			return true
		}
	}
	return false
}

// RemovePin unlinks every task driving pin and returns how many there were.
func (q *TaskQueue) RemovePin(pin Pin) int {
	if pin == PinUndefined {
		return 0
	}
	removed := 0
	p := &q.head
	for *p != nil {
		t := *p
		if t.Pin == pin || t.dropPin(pin) {
			*p = t.next
			t.next = nil
			t.queued = false
			q.n--
			removed++
			continue
		}
		p = &t.next
	}
	return removed
}

// dropPin removes pin from t.Pins and reports whether that left the task
// with nothing to drive.
func (t *Task) dropPin(pin Pin) bool {
	if len(t.Pins) == 0 {
		return false
	}
	t.Pins = slices.DeleteFunc(t.Pins, func(p Pin) bool { return p == pin })
	return len(t.Pins) == 0
}

// Peek returns the earliest task without removing it.
func (q *TaskQueue) Peek() *Task { return q.head }

// Pop removes and returns the earliest task.
func (q *TaskQueue) Pop() *Task {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.next
	t.next = nil // Clear Next pointer to avoid circular references
	t.queued = false
	q.n--
	return t
}

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int { return q.n }

// Clear drops every task.
func (q *TaskQueue) Clear() {
	for q.head != nil {
		q.Pop()
	}
}

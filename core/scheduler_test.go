package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(q *TaskQueue) []*Task {
	var out []*Task
	for t := q.Pop(); t != nil; t = q.Pop() {
		out = append(out, t)
	}
	return out
}

func TestTaskQueueOrdersByWakeTime(t *testing.T) {
	var q TaskQueue
	a := &Task{WakeTime: 30}
	b := &Task{WakeTime: 10}
	c := &Task{WakeTime: 20}
	q.Add(a)
	q.Add(b)
	q.Add(c)

	require.Equal(t, 3, q.Len())
	assert.Equal(t, b, q.Peek())
	assert.Equal(t, []*Task{b, c, a}, drain(&q))
	assert.Zero(t, q.Len())
}

func TestTaskQueueTiesRunInInsertionOrder(t *testing.T) {
	var q TaskQueue
	first := &Task{WakeTime: 5}
	second := &Task{WakeTime: 5}
	third := &Task{WakeTime: 5}
	early := &Task{WakeTime: 1}
	q.Add(first)
	q.Add(second)
	q.Add(early)
	q.Add(third)

	assert.Equal(t, []*Task{early, first, second, third}, drain(&q))
}

func TestTaskQueueRemove(t *testing.T) {
	var q TaskQueue
	a := &Task{WakeTime: 1, Pin: 3}
	b := &Task{WakeTime: 2, Pin: 4}
	c := &Task{WakeTime: 3, Pin: 3}
	q.Add(a)
	q.Add(b)
	q.Add(c)

	assert.True(t, q.Remove(b))
	assert.False(t, q.Remove(b))
	assert.Equal(t, 2, q.RemovePin(3))
	assert.Zero(t, q.Len())
	assert.Nil(t, q.Peek())
}

func TestTaskQueueRemovePinFromMultiPinTask(t *testing.T) {
	var q TaskQueue
	multi := &Task{WakeTime: 1, Pin: PinUndefined, Pins: []Pin{3, 5, 3}}
	q.Add(multi)

	assert.Zero(t, q.RemovePin(3))
	assert.Equal(t, []Pin{5}, multi.Pins)
	assert.Equal(t, 1, q.Len())

	assert.Zero(t, q.RemovePin(PinUndefined))
	assert.Equal(t, 1, q.RemovePin(5))
	assert.Zero(t, q.Len())
}

func TestTaskQueueReAddMoves(t *testing.T) {
	var q TaskQueue
	a := &Task{WakeTime: 1}
	b := &Task{WakeTime: 2}
	q.Add(a)
	q.Add(b)

	a.WakeTime = 3
	q.Add(a)
	require.Equal(t, 2, q.Len())
	assert.Equal(t, []*Task{b, a}, drain(&q))
}

package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAndExpire(t *testing.T) {
	var tm Timer
	tm.Start(1000, 0)
	due, armed := tm.Due()
	require.True(t, armed)
	assert.Equal(t, uint64(1001), due)

	assert.False(t, tm.Expire(1000))
	assert.True(t, tm.Expire(1001))
	assert.False(t, tm.Armed())
	assert.False(t, tm.Expire(1002))
}

func TestRescheduleFromIntendedExpiry(t *testing.T) {
	var tm Timer
	tm.Start(0, 100)

	// The interrupt runs late every time; the schedule must not drift.
	for i := uint64(1); i <= 5; i++ {
		late := i*100 + 37
		require.True(t, tm.Expire(late))
		tm.Reschedule(late, 100)
		due, armed := tm.Due()
		require.True(t, armed)
		assert.Equal(t, (i+1)*100, due)
	}
}

func TestRescheduleWhileDisabledStarts(t *testing.T) {
	var tm Timer
	tm.Reschedule(500, 10)
	due, _ := tm.Due()
	assert.Equal(t, uint64(510), due)

	tm.Disable()
	assert.False(t, tm.Armed())
	assert.False(t, tm.Expire(600))
	tm.Reschedule(700, 10)
	due, _ = tm.Due()
	assert.Equal(t, uint64(710), due)
}

func TestTargetHops(t *testing.T) {
	var tm Timer
	tm.Start(0, 3*MaxHop+5)

	now := uint64(0)
	hops := 0
	for !tm.Expire(now) {
		at := tm.Target(now)
		require.LessOrEqual(t, at-now, uint64(MaxHop))
		now = at
		hops++
	}
	assert.Equal(t, 4, hops)
	assert.Equal(t, uint64(3*MaxHop+5), now)

	// A due time already passed is pushed out by the minimum lead.
	tm.Reschedule(now+50, 1)
	assert.Equal(t, now+50+MinLead, tm.Target(now+50))
}

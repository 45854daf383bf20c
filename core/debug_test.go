package core_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohal/core"
)

// captureDebug routes debug output into a slice for the duration of t.
func captureDebug(t *testing.T) func() []string {
	t.Helper()
	var (
		mu    sync.Mutex
		lines []string
	)
	core.SetDebugWriter(func(s string) {
		mu.Lock()
		lines = append(lines, s)
		mu.Unlock()
	})
	t.Cleanup(func() {
		core.SetDebugWriter(func(string) {})
		core.SetDebugEnabled(false)
	})
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	lines := captureDebug(t)

	core.SetDebugEnabled(false)
	assert.False(t, core.IsDebugEnabled())
	core.DebugPrintln("hidden")
	assert.Empty(t, lines())

	core.SetDebugEnabled(true)
	assert.True(t, core.IsDebugEnabled())
	core.DebugPrintln("shown")
	assert.Equal(t, []string{"shown"}, lines())
}

func TestDebugAsync(t *testing.T) {
	lines := captureDebug(t)

	core.InitAsyncDebug()
	core.DebugAsync("from interrupt")
	require.Eventually(t, func() bool {
		return len(lines()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "from interrupt", lines()[0])
}

func TestTimingRingDump(t *testing.T) {
	lines := captureDebug(t)
	h, s := newTestHAL(t)

	core.ClearTimingRing()
	assert.Empty(t, core.TimingEvents())

	h.ScheduleFunc(h.Now()+100, func() {})
	s.Advance(100)

	evs := core.TimingEvents()
	require.NotEmpty(t, evs)
	assert.Equal(t, uint8(core.EvtTimerStart), evs[0].EventType)
	assert.True(t, strings.HasPrefix(evs[0].String(), "TIMER_START id=0"))

	core.DumpTimingRing()
	out := lines()
	require.Len(t, out, len(evs)+2)
	assert.Equal(t, "[TIMING] === Timing Ring Dump ===", out[0])
	assert.Contains(t, out[1], "TIMER_START")
	assert.Equal(t, "[TIMING] === End Dump ===", out[len(out)-1])

	core.ClearTimingRing()
	assert.Empty(t, core.TimingEvents())
}

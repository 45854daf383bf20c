package linux

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (l *Linux) readFile(name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(l.cfg.Root, name))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// SerialNumber returns the systemd machine id.
func (l *Linux) SerialNumber() []byte {
	if id, ok := l.readFile("etc/machine-id"); ok {
		return []byte(id)
	}
	return nil
}

func (l *Linux) IsUSBConnected() bool { return false }

func (l *Linux) RandomNumber() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// Temperature reads the first thermal zone, in millidegrees.
func (l *Linux) Temperature() float64 {
	s, ok := l.readFile("sys/class/thermal/thermal_zone0/temp")
	if !ok {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v / 1000
}

func (l *Linux) VRef() float64 {
	if l.board.VRef == 0 {
		return math.NaN()
	}
	return l.board.VRef
}

// SystemClock reads the current CPU frequency, in kHz, falling back to
// the board's nominal clock.
func (l *Linux) SystemClock() uint32 {
	if s, ok := l.readFile("sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq"); ok {
		if khz, err := strconv.ParseUint(s, 10, 32); err == nil {
			return uint32(khz * 1000)
		}
	}
	return l.board.SystemClockHz
}

// SetSystemClock is left to the kernel's cpufreq governor.
func (l *Linux) SetSystemClock(hz uint32) uint32 { return 0 }

package boards

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohal/core"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"rpi", "sim32"}, Names())
}

func TestNamedSim32(t *testing.T) {
	b, err := Named("sim32")
	require.NoError(t, err)

	assert.Equal(t, "sim32", b.Name)
	assert.Len(t, b.Pins, 32)
	assert.Equal(t, 2, b.USARTs)
	assert.Equal(t, uint32(72000000), b.SystemClockHz)
	assert.True(t, b.HasUSB)
	assert.Equal(t, core.Serial(1), b.DefaultConsole)

	assert.False(t, b.IsPinValid(13))
	assert.False(t, b.IsPinValid(32))
	assert.True(t, b.IsPinValid(15))

	a5, ok := b.PinByName("A5")
	require.True(t, ok)
	info := b.Pin(a5)
	assert.Equal(t, 5, info.AnalogChannel)
	assert.Equal(t, uint8(3), info.ADCs)
	require.Len(t, info.Functions, 2)
	assert.Equal(t, "SPI1_SCK:AF5", info.Functions[1].String())

	a15, _ := b.PinByName("A15")
	assert.Equal(t, core.StateInputPullDown, b.PowerOnState(a15))
	assert.Equal(t, []core.Pin{a15}, b.Buttons)
	assert.Len(t, b.LEDs, 2)

	b0, _ := b.PinByName("B0")
	assert.Equal(t, b.EXTILine(a5)-5, b.EXTILine(b0))
}

func TestNamedReturnsCopies(t *testing.T) {
	a := MustNamed("sim32")
	a.Pins[0].Name = "changed"
	b := MustNamed("sim32")
	assert.Equal(t, "A0", b.Pins[0].Name)
}

func TestNamedUnknown(t *testing.T) {
	_, err := Named("nope")
	assert.ErrorIs(t, err, ErrUnknownBoard)
	assert.Panics(t, func() { MustNamed("nope") })
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]struct {
		yaml string
		want string
	}{
		"no name":          {`pins: []`, "no name"},
		"unknown field":    {"name: x\ncolour: red\n", "colour"},
		"bad function":     {"name: x\npins:\n  - {name: P0, port: P, num: 0, functions: [WARP1_CORE]}\n", `unknown function "WARP1_CORE"`},
		"bad default":      {"name: x\npins:\n  - {name: P0, port: P, num: 0, default: sideways}\n", "unknown default state"},
		"unwired function": {"name: x\npins:\n  - {functions: [DAC_CH1]}\n", "needs a port"},
		"long port":        {"name: x\npins:\n  - {name: P0, port: PA, num: 0}\n", "one letter"},
		"negative analog":  {"name: x\npins:\n  - {name: P0, port: P, num: 0, analog: -2}\n", "negative analog"},
		"missing led":      {"name: x\nleds: [Q9]\npins:\n  - {name: P0, port: P, num: 0}\n", `no pin named "Q9"`},
		"bad console":      {"name: x\nconsole: SPI1\n", "not a serial device"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "tiny.yaml")
	require.NoError(t, os.WriteFile(name, []byte(`
name: tiny
usarts: 1
pins:
  - {name: P0, port: P, num: 0, functions: [USART1_TX]}
  - {}
  - {name: P2, port: P, num: 2, analog: 0}
`), 0o644))

	b, err := LoadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "tiny", b.Name)
	assert.False(t, b.IsPinValid(1))
	p, fn := b.FindPinForFunction(core.FuncUSART1 | core.InfoUSARTTX)
	assert.Equal(t, core.Pin(0), p)
	assert.Equal(t, core.Serial(1), fn.Device())
	assert.Equal(t, core.StateInput, b.PowerOnState(2))

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(name, []byte("name: [\n"), 0o644))
	_, err = LoadFile(name)
	require.Error(t, err)
	assert.Contains(t, err.Error(), name)
}

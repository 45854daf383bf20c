// Package boards loads pin capability tables from YAML.
//
// A board file lists the device's pins in index order together with the
// alternate functions each one can be wired to. The tables for the built-in
// boards are embedded; others can be loaded from disk.
package boards

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"gohal/core"
)

//go:embed *.yaml
var builtin embed.FS

// ErrUnknownBoard is returned by Named for a board that is not built in.
var ErrUnknownBoard = errors.New("unknown board")

type pinFile struct {
	Name      string   `yaml:"name"`
	Port      string   `yaml:"port"`
	Num       uint8    `yaml:"num"`
	Analog    *int     `yaml:"analog"`
	ADCs      uint8    `yaml:"adcs"`
	Functions []string `yaml:"functions"`
	Default   string   `yaml:"default"`
}

type boardFile struct {
	Name          string    `yaml:"name"`
	USARTs        int       `yaml:"usarts"`
	SPIs          int       `yaml:"spis"`
	I2Cs          int       `yaml:"i2cs"`
	ADCResolution int       `yaml:"adc_resolution"`
	VRef          float64   `yaml:"vref"`
	SystemClockHz uint32    `yaml:"system_clock_hz"`
	USB           bool      `yaml:"usb"`
	LEDs          []string  `yaml:"leds"`
	Buttons       []string  `yaml:"buttons"`
	Console       string    `yaml:"console"`
	Pins          []pinFile `yaml:"pins"`
}

// Load decodes a board table.
func Load(r io.Reader) (*core.Board, error) {
	var f boardFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	return f.board()
}

// LoadFile reads a board table from disk.
func LoadFile(name string) (*core.Board, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	b, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

// Named returns a fresh copy of a built-in board.
func Named(name string) (*core.Board, error) {
	data, err := builtin.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, name)
	}
	return Load(bytes.NewReader(data))
}

// MustNamed is Named for boards known to exist.
func MustNamed(name string) *core.Board {
	b, err := Named(name)
	if err != nil {
		panic(err)
	}
	return b
}

// Names lists the built-in boards.
func Names() []string {
	entries, _ := builtin.ReadDir(".")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

func (f *boardFile) board() (*core.Board, error) {
	if f.Name == "" {
		return nil, errors.New("board has no name")
	}
	b := &core.Board{
		Name:          f.Name,
		USARTs:        f.USARTs,
		SPIs:          f.SPIs,
		I2Cs:          f.I2Cs,
		ADCResolution: f.ADCResolution,
		VRef:          f.VRef,
		SystemClockHz: f.SystemClockHz,
		HasUSB:        f.USB,
		Pins:          make([]core.PinInfo, len(f.Pins)),
	}
	if len(f.Pins) >= int(core.PinUndefined) {
		return nil, fmt.Errorf("board %s: %d pins, at most %d allowed", f.Name, len(f.Pins), core.PinUndefined)
	}

	for i, p := range f.Pins {
		info, err := p.pinInfo()
		if err != nil {
			return nil, fmt.Errorf("board %s: pin %d (%s): %w", f.Name, i, p.Name, err)
		}
		b.Pins[i] = info
	}

	var err error
	if b.LEDs, err = lookupPins(b, f.LEDs); err != nil {
		return nil, fmt.Errorf("board %s: leds: %w", f.Name, err)
	}
	if b.Buttons, err = lookupPins(b, f.Buttons); err != nil {
		return nil, fmt.Errorf("board %s: buttons: %w", f.Name, err)
	}
	if f.Console != "" {
		dev, ok := core.ParseDevice(f.Console)
		if !ok || !dev.IsUSART() {
			return nil, fmt.Errorf("board %s: console %q is not a serial device", f.Name, f.Console)
		}
		b.DefaultConsole = dev
	}
	return b, nil
}

func (p *pinFile) pinInfo() (core.PinInfo, error) {
	info := core.PinInfo{
		Name:          p.Name,
		Num:           p.Num,
		ADCs:          p.ADCs,
		AnalogChannel: core.NoAnalogChannel,
	}
	if p.Port == "" {
		if p.Name != "" || len(p.Functions) > 0 {
			return info, errors.New("wired pin needs a port")
		}
		return info, nil
	}
	if len(p.Port) != 1 {
		return info, fmt.Errorf("port %q must be one letter", p.Port)
	}
	info.Port = p.Port[0]
	if p.Analog != nil {
		if *p.Analog < 0 {
			return info, fmt.Errorf("negative analog channel %d", *p.Analog)
		}
		info.AnalogChannel = *p.Analog
	}
	for _, s := range p.Functions {
		fn, ok := core.ParsePinFunction(s)
		if !ok {
			return info, fmt.Errorf("unknown function %q", s)
		}
		info.Functions = append(info.Functions, fn)
	}
	if p.Default != "" {
		st, ok := core.ParsePinState(p.Default)
		if !ok {
			return info, fmt.Errorf("unknown default state %q", p.Default)
		}
		info.DefaultState = st
	}
	return info, nil
}

func lookupPins(b *core.Board, names []string) ([]core.Pin, error) {
	var pins []core.Pin
	for _, n := range names {
		p, ok := b.PinByName(n)
		if !ok {
			return nil, fmt.Errorf("no pin named %q", n)
		}
		pins = append(pins, p)
	}
	return pins, nil
}

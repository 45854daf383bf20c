package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"gohal/core"
	"gohal/targets/sim"
)

// errQuit ends the script.
var errQuit = errors.New("quit")

// Handler runs one script command. args excludes the command name.
type Handler func(s *session, args []string) error

// Command is a script command.
type Command struct {
	Name    string
	Args    string // usage, eg. "<pin> <0|1>"
	Help    string
	MinArgs int
	Handler Handler
}

// Registry holds the script commands by name.
type Registry struct {
	commands map[string]*Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command. A second registration of the same name
// replaces the first.
func (r *Registry) Register(c *Command) {
	r.commands[c.Name] = c
}

func (r *Registry) Lookup(name string) (*Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Names returns the registered command names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// session is the state a script runs against.
type session struct {
	h   *core.HAL
	sim *sim.Sim
	reg *Registry
	out io.Writer
	log *slog.Logger
}

// Exec splits line shell-style and runs it. Blank lines and lines starting
// with # are ignored.
func (s *session) Exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	words, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse %q: %w", line, err)
	}
	if len(words) == 0 {
		return nil
	}
	c, ok := s.reg.Lookup(words[0])
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", words[0])
	}
	args := words[1:]
	if len(args) < c.MinArgs {
		return fmt.Errorf("usage: %s %s", c.Name, c.Args)
	}
	if err := c.Handler(s, args); err != nil {
		return err
	}
	s.drain()
	return nil
}

// drain prints every queued event.
func (s *session) drain() {
	s.h.Idle(func(ev core.IOEvent) {
		at := s.h.MillisFromTime(ev.Time)
		if ev.Device.IsUSART() {
			fmt.Fprintf(s.out, "%9.3f %s rx %q\n", at, ev.Device, ev.Bytes())
			return
		}
		name := "?"
		if p := s.h.WatchedPin(ev.Device); p != core.PinUndefined {
			name = s.h.Board().Pins[p].Name
		}
		fmt.Fprintf(s.out, "%9.3f %s %s=%d\n", at, ev.Device, name, b2i(ev.Level))
	})
	if n := s.h.DroppedEvents(); n > 0 {
		s.log.Warn("events dropped", "count", n)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *session) pin(name string) (core.Pin, error) {
	if p, ok := s.h.Board().PinByName(name); ok {
		return p, nil
	}
	if n, err := strconv.Atoi(name); err == nil && s.h.Board().IsPinValid(core.Pin(n)) {
		return core.Pin(n), nil
	}
	return core.PinUndefined, fmt.Errorf("%w: %q", core.ErrInvalidPin, name)
}

func (s *session) device(name string) (core.Device, error) {
	dev, ok := core.ParseDevice(name)
	if !ok || !dev.IsPeripheral() {
		return core.DeviceNone, fmt.Errorf("%w: %q", core.ErrInvalidDevice, name)
	}
	return dev, nil
}

func parseLevel(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "high", "on", "true":
		return true, nil
	case "0", "low", "off", "false":
		return false, nil
	}
	return false, fmt.Errorf("bad level %q", s)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}

// parseMillis converts a duration in ms to ticks.
func (s *session) parseMillis(arg string) (core.SysTime, error) {
	ms, err := parseFloat(arg)
	if err != nil {
		return 0, err
	}
	return s.h.TimeFromMillis(ms), nil
}

// defaultCommands builds the command set of halsim.
func defaultCommands() *Registry {
	r := NewRegistry()
	for _, c := range []*Command{
		{Name: "help", Help: "list commands", Handler: cmdHelp},
		{Name: "quit", Help: "stop the script", Handler: func(*session, []string) error { return errQuit }},
		{Name: "pins", Help: "show every pin's state and functions", Handler: cmdPins},
		{Name: "time", Help: "print the clock", Handler: cmdTime},
		{Name: "info", Help: "print system information", Handler: cmdInfo},
		{Name: "mode", Args: "<pin> <state>", MinArgs: 2, Help: "set a pin state, eg. input_pullup", Handler: cmdMode},
		{Name: "write", Args: "<pin> <0|1>", MinArgs: 2, Help: "drive an output", Handler: cmdWrite},
		{Name: "read", Args: "<pin>", MinArgs: 1, Help: "read a pin", Handler: cmdRead},
		{Name: "toggle", Args: "<pin>", MinArgs: 1, Help: "invert an output", Handler: cmdToggle},
		{Name: "drive", Args: "<pin> <0|1>", MinArgs: 2, Help: "set the external level on an input", Handler: cmdDrive},
		{Name: "pulse", Args: "<pin> <0|1> <ms>...", MinArgs: 3, Help: "output a pulse train", Handler: cmdPulse},
		{Name: "pwm", Args: "<pin> <duty> [freq] [soft]", MinArgs: 2, Help: "start analog output", Handler: cmdPWM},
		{Name: "analog", Args: "<pin> [level]", MinArgs: 1, Help: "sample a pin, optionally setting its level first", Handler: cmdAnalog},
		{Name: "watch", Args: "<pin> [off|fast]", MinArgs: 1, Help: "report edges on a pin", Handler: cmdWatch},
		{Name: "advance", Args: "<ms>", MinArgs: 1, Help: "run the clock forward", Handler: cmdAdvance},
		{Name: "history", Args: "<pin>", MinArgs: 1, Help: "print recorded output transitions", Handler: cmdHistory},
		{Name: "setup", Args: "<device> [key=value]...", MinArgs: 1, Help: "configure Serial/SPI/I2C", Handler: cmdSetup},
		{Name: "unsetup", Args: "<device>", MinArgs: 1, Help: "release a device", Handler: cmdUnsetup},
		{Name: "send", Args: "<device> <text>", MinArgs: 2, Help: "transmit on a USART", Handler: cmdSend},
		{Name: "inject", Args: "<device> <text>", MinArgs: 2, Help: "receive text on a USART", Handler: cmdInject},
		{Name: "output", Args: "<device>", MinArgs: 1, Help: "print what a USART has sent", Handler: cmdOutput},
		{Name: "timing", Args: "[clear]", Help: "print or clear the timing ring", Handler: cmdTiming},
		{Name: "reset", Help: "return every pin and device to power-on state", Handler: cmdReset},
	} {
		r.Register(c)
	}
	return r
}

func cmdHelp(s *session, _ []string) error {
	for _, n := range s.reg.Names() {
		c, _ := s.reg.Lookup(n)
		fmt.Fprintf(s.out, "  %-28s %s\n", strings.TrimSpace(c.Name+" "+c.Args), c.Help)
	}
	return nil
}

func cmdPins(s *session, _ []string) error {
	for i := range s.h.Board().Pins {
		r, err := s.h.PinReport(core.Pin(i))
		if err != nil {
			continue
		}
		fns := make([]string, len(r.Functions))
		for j, f := range r.Functions {
			fns[j] = f.String()
		}
		fmt.Fprintf(s.out, "%-4s %-16s out=%d %s\n", r.Name, r.State, b2i(r.Output), strings.Join(fns, ","))
	}
	return nil
}

func cmdTime(s *session, _ []string) error {
	fmt.Fprintf(s.out, "%.3fms\n", s.h.MillisFromTime(s.h.Now()))
	return nil
}

func cmdInfo(s *session, _ []string) error {
	fmt.Fprintf(s.out, "board %s serial %s clock %dHz vref %.2fV temp %.1fC usb %v\n",
		s.h.Board().Name, s.h.SerialNumber(), s.h.SystemClock(), s.h.VRef(), s.h.Temperature(), s.h.IsUSBConnected())
	return nil
}

func cmdMode(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	st, ok := core.ParsePinState(args[1])
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrInvalidState, args[1])
	}
	return s.h.SetPinState(p, st)
}

func cmdWrite(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	v, err := parseLevel(args[1])
	if err != nil {
		return err
	}
	return s.h.PinOutput(p, v)
}

func cmdRead(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	v, err := s.h.PinInput(p)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s=%d\n", args[0], b2i(v))
	return nil
}

func cmdToggle(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	v, err := s.h.PinToggle(p)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s=%d\n", args[0], b2i(v))
	return nil
}

func cmdDrive(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	v, err := parseLevel(args[1])
	if err != nil {
		return err
	}
	s.sim.SetInput(p, v)
	return nil
}

func cmdPulse(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	v, err := parseLevel(args[1])
	if err != nil {
		return err
	}
	times := make([]float64, 0, len(args)-2)
	for _, a := range args[2:] {
		ms, err := parseFloat(a)
		if err != nil {
			return err
		}
		times = append(times, ms)
	}
	return s.h.DigitalPulse(p, v, times)
}

func cmdPWM(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	duty, err := parseFloat(args[1])
	if err != nil {
		return err
	}
	freq := 0.0
	if len(args) > 2 {
		if freq, err = parseFloat(args[2]); err != nil {
			return err
		}
	}
	flags := core.AnalogOutputAllowSoftware
	if len(args) > 3 && args[3] == "soft" {
		flags = core.AnalogOutputForceSoftware
	}
	fn, err := s.h.WriteAnalog(p, duty, freq, flags)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s via %s\n", args[0], fn)
	return nil
}

func cmdAnalog(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	if len(args) > 1 {
		v, err := parseFloat(args[1])
		if err != nil {
			return err
		}
		s.sim.SetAnalog(p, v)
	}
	v, err := s.h.ReadAnalog(p)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s=%.4f\n", args[0], v)
	return nil
}

func cmdWatch(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	enable, flags := true, core.WatchNone
	if len(args) > 1 {
		switch args[1] {
		case "off":
			enable = false
		case "fast":
			flags = core.WatchHighSpeed
		default:
			return fmt.Errorf("usage: watch <pin> [off|fast]")
		}
	}
	dev, err := s.h.Watch(p, enable, flags)
	if err != nil {
		return err
	}
	if enable {
		fmt.Fprintf(s.out, "%s on %s\n", args[0], dev)
	}
	return nil
}

func cmdAdvance(s *session, args []string) error {
	d, err := s.parseMillis(args[0])
	if err != nil {
		return err
	}
	s.sim.Advance(d)
	return nil
}

func cmdHistory(s *session, args []string) error {
	p, err := s.pin(args[0])
	if err != nil {
		return err
	}
	for _, e := range s.sim.History(p) {
		fmt.Fprintf(s.out, "%9.3f %s=%d\n", s.h.MillisFromTime(e.Time), args[0], b2i(e.Level))
	}
	return nil
}

func cmdSetup(s *session, args []string) error {
	dev, err := s.device(args[0])
	if err != nil {
		return err
	}
	info, err := s.peripheralInfo(dev, args[1:])
	if err != nil {
		return err
	}
	return s.h.Setup(dev, info)
}

// peripheralInfo builds the default configuration of dev and applies
// key=value overrides to it.
func (s *session) peripheralInfo(dev core.Device, args []string) (core.PeripheralInfo, error) {
	kv := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("want key=value, got %q", a)
		}
		kv[k] = v
	}
	num := func(k string, dst *uint32) error {
		if v, ok := kv[k]; ok {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("%s: bad number %q", k, v)
			}
			*dst = uint32(n)
		}
		return nil
	}
	pin := func(k string, dst *core.Pin) error {
		if v, ok := kv[k]; ok {
			p, err := s.pin(v)
			if err != nil {
				return err
			}
			*dst = p
		}
		return nil
	}

	var errs []error
	switch {
	case dev.IsUSART():
		u := core.NewUSARTInfo()
		var size, stop uint32 = uint32(u.Bytesize), uint32(u.Stopbits)
		errs = append(errs, num("baud", &u.Baud), num("bytesize", &size), num("stopbits", &stop),
			pin("rx", &u.RX), pin("tx", &u.TX))
		u.Bytesize, u.Stopbits = uint8(size), uint8(stop)
		switch kv["parity"] {
		case "", "none":
		case "odd":
			u.Parity = core.ParityOdd
		case "even":
			u.Parity = core.ParityEven
		default:
			errs = append(errs, fmt.Errorf("parity: bad value %q", kv["parity"]))
		}
		return u, errors.Join(errs...)
	case dev.IsSPI():
		c := core.NewSPIInfo()
		var mode, bits uint32 = uint32(c.Mode), uint32(c.NumBits)
		errs = append(errs, num("baud", &c.Baud), num("mode", &mode), num("bits", &bits),
			pin("sck", &c.SCK), pin("miso", &c.MISO), pin("mosi", &c.MOSI))
		c.Mode, c.NumBits = uint8(mode), uint8(bits)
		if kv["order"] == "lsb" {
			c.Order = core.LSBFirst
		}
		return c, errors.Join(errs...)
	}
	c := core.NewI2CInfo()
	errs = append(errs, num("bitrate", &c.Bitrate), pin("scl", &c.SCL), pin("sda", &c.SDA))
	return c, errors.Join(errs...)
}

func cmdUnsetup(s *session, args []string) error {
	dev, err := s.device(args[0])
	if err != nil {
		return err
	}
	return s.h.Unsetup(dev)
}

func cmdSend(s *session, args []string) error {
	dev, err := s.device(args[0])
	if err != nil {
		return err
	}
	return s.h.USARTWrite(dev, []byte(strings.Join(args[1:], " ")))
}

func cmdInject(s *session, args []string) error {
	dev, err := s.device(args[0])
	if err != nil {
		return err
	}
	s.sim.InjectRX(dev, []byte(strings.Join(args[1:], " ")))
	return nil
}

func cmdOutput(s *session, args []string) error {
	dev, err := s.device(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s tx %q\n", dev, s.sim.UARTOutput(dev))
	return nil
}

func cmdReset(s *session, _ []string) error {
	s.h.Reset()
	return nil
}

func cmdTiming(s *session, args []string) error {
	if len(args) > 0 && args[0] == "clear" {
		core.ClearTimingRing()
		return nil
	}
	for _, ev := range core.TimingEvents() {
		fmt.Fprintln(s.out, ev)
	}
	return nil
}

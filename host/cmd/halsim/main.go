// Command halsim runs the HAL against the simulated microcontroller and
// drives it from a script of pin and device commands, printing the events
// the HAL queues.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gohal/boards"
	"gohal/core"
	"gohal/targets/sim"
)

var (
	boardName = flag.String("board", "sim32", "built-in board name or path to a board YAML file")
	script    = flag.String("script", "", "script file to run (default: read commands from stdin)")
	seed      = flag.Uint64("seed", 1, "random number seed")
	verbose   = flag.Bool("verbose", false, "log HAL debug output")
	jsonLog   = flag.Bool("json", false, "log in JSON")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if *jsonLog {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	log := slog.New(handler)

	if err := runMain(log); err != nil {
		log.Error("halsim", "err", err)
		os.Exit(1)
	}
}

func runMain(log *slog.Logger) error {
	board, err := loadBoard(*boardName)
	if err != nil {
		return fmt.Errorf("load board %q: %w", *boardName, err)
	}

	in := io.Reader(os.Stdin)
	interactive := *script == ""
	if !interactive {
		f, err := os.Open(*script)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	s := newSession(board, *seed, os.Stdout, log)
	defer s.h.Kill()
	return s.run(in, interactive)
}

// loadBoard accepts a built-in name or a YAML file.
func loadBoard(name string) (*core.Board, error) {
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return boards.LoadFile(name)
	}
	return boards.Named(name)
}

func newSession(board *core.Board, seed uint64, out io.Writer, log *slog.Logger) *session {
	core.SetDebugWriter(func(msg string) { log.Debug(msg) })
	core.SetDebugEnabled(log.Enabled(context.Background(), slog.LevelDebug))

	sm := sim.New(sim.Config{Board: board, Seed: seed, USBConnected: true})
	h := core.New(sm)
	h.Init()
	log.Info("board ready", "board", board.Name, "pins", len(board.Pins))
	return &session{h: h, sim: sm, reg: defaultCommands(), out: out, log: log}
}

// run executes commands line by line. Interactively, errors are reported
// and the session continues; in a script the first error stops it.
func (s *session) run(in io.Reader, interactive bool) error {
	sc := bufio.NewScanner(in)
	line := 0
	for {
		if interactive {
			fmt.Fprint(s.out, "> ")
		}
		if !sc.Scan() {
			break
		}
		line++
		err := s.Exec(sc.Text())
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil && interactive:
			fmt.Fprintf(s.out, "error: %v\n", err)
		case err != nil:
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

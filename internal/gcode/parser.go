package gcode

import (
	"strings"

	"github.com/plotsim/plotsim/internal/geom"
)

// Program is the parsed form of a motion text.
type Program struct {
	Commands []Command     `json:"commands"`
	Envelope geom.Envelope `json:"envelope"`
}

// Counts returns per-kind totals for the program.
func (p Program) Counts() Counts {
	return CountCommands(p.Commands)
}

// Parse turns motion text into commands and their envelope. Unrecognized
// lines are skipped without error.
func Parse(text string) Program {
	var (
		state State
		cmds  []Command
		env   = geom.EmptyEnvelope()
	)

	for i, raw := range strings.Split(text, "\n") {
		fragment, ok := codeFragment(raw)
		if !ok {
			continue
		}

		var cmd Command
		state, cmd, ok = state.Apply(Tokenize(fragment), i+1)
		if !ok {
			continue
		}

		cmds = append(cmds, cmd)
		env = env.Include(cmd.X, cmd.Y)
	}

	return Program{Commands: cmds, Envelope: env.Finish()}
}

// EnvelopeOf computes the envelope over command coordinates.
func EnvelopeOf(cmds []Command) geom.Envelope {
	env := geom.EmptyEnvelope()
	for _, c := range cmds {
		env = env.Include(c.X, c.Y)
	}
	return env.Finish()
}

// codeFragment strips comments from a raw line. ok is false for blank and
// whole-line comment lines.
func codeFragment(raw string) (string, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return "", false
	}
	switch line[0] {
	case '(', ';', '%':
		return "", false
	}
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	return line, true
}

package gcode

import (
	"encoding/json"
	"fmt"
)

// Kind distinguishes pen-up travel from drawing moves.
type Kind uint8

const (
	Rapid Kind = iota
	Linear
)

func (k Kind) String() string {
	switch k {
	case Rapid:
		return "rapid"
	case Linear:
		return "linear"
	default:
		return "unknown"
	}
}

// Code returns the motion word that produces this kind.
func (k Kind) Code() string {
	if k == Linear {
		return "G1"
	}
	return "G0"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// MarshalYAML writes the kind by name.
func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "rapid":
		*k = Rapid
	case "linear":
		*k = Linear
	default:
		return fmt.Errorf("unknown motion kind %q", s)
	}
	return nil
}

// Command is one resolved move. Coordinates are absolute.
type Command struct {
	Kind     Kind    `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FeedRate float64 `json:"feedRate"`
	Line     int     `json:"line"` // 1-based source line
}

// Counts tallies a command list by kind.
type Counts struct {
	Total  int `json:"total"`
	Rapid  int `json:"rapid"`
	Linear int `json:"linear"`
}

// CountCommands returns per-kind totals.
func CountCommands(cmds []Command) Counts {
	c := Counts{Total: len(cmds)}
	for _, cmd := range cmds {
		if cmd.Kind == Rapid {
			c.Rapid++
		} else {
			c.Linear++
		}
	}
	return c
}

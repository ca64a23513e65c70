package engine

import (
	"fmt"

	"github.com/plotsim/plotsim/internal/gcode"
)

// Phase is the playback lifecycle: Idle -> Running <-> Paused -> Complete.
type Phase uint8

const (
	Idle Phase = iota
	Running
	Paused
	Complete
)

var phaseNames = [...]string{"idle", "running", "paused", "complete"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Waypoint is a committed point the tool reached.
type Waypoint struct {
	X    float64    `json:"x"`
	Y    float64    `json:"y"`
	Kind gcode.Kind `json:"kind"`
}

// PlaybackState is a read-only snapshot of the engine.
type PlaybackState struct {
	CommandIndex int        `json:"commandIndex"`
	ToolX        float64    `json:"toolX"`
	ToolY        float64    `json:"toolY"`
	FeedRate     float64    `json:"feedRate"`
	Running      bool       `json:"running"`
	Paused       bool       `json:"paused"`
	History      []Waypoint `json:"history"`
}

// Frame is the per-step pose report sent to renderers.
type Frame struct {
	Phase    Phase   `json:"phase"`
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FeedRate float64 `json:"feedRate"`
	Progress float64 `json:"progress"`
	Line     int     `json:"line"`
	Speed    float64 `json:"speed"`
}

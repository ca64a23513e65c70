package export

import (
	"encoding/json"

	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/geom"
)

// PathCommand is one move in display coordinates.
type PathCommand struct {
	Op string  `json:"op"` // "M" or "L"
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// DrawCommand is a stroked path for a run of same-kind motion commands.
type DrawCommand struct {
	Kind      gcode.Kind    `json:"kind"`
	FirstLine int           `json:"firstLine"`
	Path      []PathCommand `json:"path"`
}

// CompileDrawCommands groups consecutive commands of the same kind into
// paths and maps them through view. Each path starts where the previous
// one ended, so the drawing is continuous. The first command only
// positions the pen.
func CompileDrawCommands(cmds []gcode.Command, view geom.ViewTransform) []DrawCommand {
	if len(cmds) == 0 {
		return nil
	}

	var (
		out  []DrawCommand
		cur  *DrawCommand
		prev = cmds[0]
	)
	for _, c := range cmds[1:] {
		if cur == nil || cur.Kind != c.Kind {
			if cur != nil {
				out = append(out, *cur)
			}
			x, y := view.WorldToDisplay(prev.X, prev.Y)
			cur = &DrawCommand{
				Kind:      c.Kind,
				FirstLine: c.Line,
				Path:      []PathCommand{{Op: "M", X: x, Y: y}},
			}
		}
		x, y := view.WorldToDisplay(c.X, c.Y)
		cur.Path = append(cur.Path, PathCommand{Op: "L", X: x, Y: y})
		prev = c
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// FitView returns a transform fitted to env on a width x height surface.
// Degenerate envelopes keep the 1:1 transform.
func FitView(env geom.Envelope, width, height, padding float64) geom.ViewTransform {
	v := geom.NewViewTransform(width, height, padding)
	v.Fit(env, width, height)
	return v
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// Package compiler turns CAD entities into pen-plotter motion text. The
// output is re-read through gcode.Parse; there is no direct path from an
// entity to a gcode.Command.
package compiler

import (
	"math"
	"strconv"
	"strings"

	"github.com/plotsim/plotsim/internal/dxf"
	"github.com/plotsim/plotsim/internal/gcode"
)

// Tessellation step counts.
const (
	CircleSteps = 36
	ArcSteps    = 18
)

// Options holds the fixed framing constants for one compiled batch.
type Options struct {
	FeedRate float64 `json:"feedRate" yaml:"feedRate"`
	SafeZ    float64 `json:"safeZ" yaml:"safeZ"`
	DrawZ    float64 `json:"drawZ" yaml:"drawZ"`
}

// DefaultOptions returns the standard plotter framing.
func DefaultOptions() Options {
	return Options{FeedRate: 1000, SafeZ: 5, DrawZ: 0}
}

// Summary counts compiled entities by kind. Skipped entities are those
// with nothing to draw (an empty polyline).
type Summary struct {
	Entities int            `json:"entities"`
	ByKind   map[string]int `json:"byKind"`
	Skipped  int            `json:"skipped"`
}

// Compile emits motion text for entities in order.
func Compile(entities []dxf.Entity, opts Options) string {
	text, _ := CompileWithSummary(entities, opts)
	return text
}

// CompileWithSummary is Compile plus per-kind counts.
func CompileWithSummary(entities []dxf.Entity, opts Options) (string, Summary) {
	w := &writer{opts: opts}
	sum := Summary{ByKind: make(map[string]int)}

	w.raw("G21 ; millimetres")
	w.raw("G90 ; absolute positioning")

	for _, e := range entities {
		var ok bool
		switch v := e.(type) {
		case dxf.Line:
			ok = w.path([]dxf.Point{{X: v.X1, Y: v.Y1}, {X: v.X2, Y: v.Y2}})
		case dxf.Polyline:
			pts := v.Points
			if v.Closed && len(pts) > 0 {
				pts = append(pts[:len(pts):len(pts)], pts[0])
			}
			ok = w.path(pts)
		case dxf.Circle:
			ok = w.path(Tessellate(v.CX, v.CY, v.R, 0, 360, CircleSteps))
		case dxf.Arc:
			ok = w.path(Tessellate(v.CX, v.CY, v.R, v.StartDeg, Sweep(v.StartDeg, v.EndDeg), ArcSteps))
		}
		if !ok {
			sum.Skipped++
			continue
		}
		sum.Entities++
		sum.ByKind[e.Kind()]++
	}

	w.penUp()
	return w.b.String(), sum
}

// Sweep returns the counter-clockwise angle from start to end in [0, 360).
// Angles outside one turn are reduced first, so an end exactly one turn
// past start sweeps 0. Non-finite angles sweep 0.
func Sweep(startDeg, endDeg float64) float64 {
	sweep := math.Mod(endDeg-startDeg, 360)
	if math.IsNaN(sweep) {
		return 0
	}
	if sweep < 0 {
		sweep += 360
	}
	if sweep >= 360 {
		sweep = 0
	}
	return sweep
}

// Tessellate returns steps+1 points on a circle from startDeg through
// startDeg+sweepDeg. The first point is the rapid target; the remaining
// steps points are drawn.
func Tessellate(cx, cy, r, startDeg, sweepDeg float64, steps int) []dxf.Point {
	pts := make([]dxf.Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := (startDeg + sweepDeg*float64(i)/float64(steps)) * math.Pi / 180
		pts = append(pts, dxf.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)})
	}
	return pts
}

type writer struct {
	opts Options
	b    strings.Builder
}

func (w *writer) raw(line string) {
	w.b.WriteString(line)
	w.b.WriteByte('\n')
}

func (w *writer) penUp() {
	w.raw("G0 Z" + gcode.Coord(w.opts.SafeZ) + " ; pen up")
}

func (w *writer) penDown() {
	w.raw("G1 Z" + gcode.Coord(w.opts.DrawZ) + " F" + feed(w.opts.FeedRate) + " ; pen down")
}

// path lifts, rapids to pts[0], lowers and draws through the rest.
func (w *writer) path(pts []dxf.Point) bool {
	if len(pts) == 0 {
		return false
	}
	w.penUp()
	w.raw("G0 X" + gcode.Coord(pts[0].X) + " Y" + gcode.Coord(pts[0].Y))
	w.penDown()
	for _, p := range pts[1:] {
		w.raw("G1 X" + gcode.Coord(p.X) + " Y" + gcode.Coord(p.Y) + " F" + feed(w.opts.FeedRate))
	}
	return true
}

func feed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package compiler

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotsim/plotsim/internal/dxf"
	"github.com/plotsim/plotsim/internal/gcode"
)

// drawn returns the commands that carry XY words, skipping the Z framing.
func drawn(t *testing.T, text string) []gcode.Command {
	t.Helper()
	prog := gcode.Parse(text)
	lines := strings.Split(text, "\n")

	var out []gcode.Command
	for _, c := range prog.Commands {
		if strings.Contains(lines[c.Line-1], " X") {
			out = append(out, c)
		}
	}
	return out
}

func TestCompileLine(t *testing.T) {
	text := Compile([]dxf.Entity{dxf.Line{X1: 1, Y1: 2, X2: 3.5, Y2: -4}}, DefaultOptions())

	assert.Equal(t, `G21 ; millimetres
G90 ; absolute positioning
G0 Z5.000 ; pen up
G0 X1.000 Y2.000
G1 Z0.000 F1000 ; pen down
G1 X3.500 Y-4.000 F1000
G0 Z5.000 ; pen up
`, text)
}

func TestCompileCircleClosesAfterFullTurn(t *testing.T) {
	text := Compile([]dxf.Entity{dxf.Circle{CX: 10, CY: -5, R: 7}}, DefaultOptions())

	cmds := drawn(t, text)
	require.Len(t, cmds, 1+CircleSteps)

	start := cmds[0]
	assert.Equal(t, gcode.Rapid, start.Kind)
	assert.InDelta(t, 17, start.X, 1e-9)
	assert.InDelta(t, -5, start.Y, 1e-9)

	points := cmds[1:]
	for _, c := range points {
		assert.Equal(t, gcode.Linear, c.Kind)
		assert.Equal(t, 1000.0, c.FeedRate)
		assert.InDelta(t, 7, math.Hypot(c.X-10, c.Y+5), 1e-3)
	}
	last := points[len(points)-1]
	assert.InDelta(t, start.X, last.X, 1e-9)
	assert.InDelta(t, start.Y, last.Y, 1e-9)
}

func TestCompileArcWrapsForward(t *testing.T) {
	text := Compile([]dxf.Entity{dxf.Arc{R: 10, StartDeg: 350, EndDeg: 10}}, DefaultOptions())

	cmds := drawn(t, text)
	require.Len(t, cmds, 1+ArcSteps)

	var swept float64
	prev := math.Atan2(cmds[0].Y, cmds[0].X)
	for _, c := range cmds[1:] {
		a := math.Atan2(c.Y, c.X)
		d := a - prev
		if d < -math.Pi {
			d += 2 * math.Pi
		}
		assert.Greater(t, d, 0.0, "arc must sweep counter-clockwise")
		swept += d
		prev = a
	}
	assert.InDelta(t, 20, swept*180/math.Pi, 0.1)

	last := cmds[len(cmds)-1]
	assert.InDelta(t, 10*math.Cos(10*math.Pi/180), last.X, 1e-3)
	assert.InDelta(t, 10*math.Sin(10*math.Pi/180), last.Y, 1e-3)
}

func TestSweep(t *testing.T) {
	assert.Equal(t, 20.0, Sweep(350, 10))
	assert.Equal(t, 90.0, Sweep(0, 90))
	assert.Equal(t, 0.0, Sweep(45, 45))
	assert.Equal(t, 270.0, Sweep(90, 0))

	// reduced to one turn
	assert.Equal(t, 310.0, Sweep(10, -400))
	assert.Equal(t, 0.0, Sweep(0, 720))
	assert.Equal(t, 0.0, Sweep(0, 360))
	assert.Equal(t, 0.0, Sweep(30, 390))
	assert.Equal(t, 60.0, Sweep(-30, 30))
	assert.Equal(t, 0.0, Sweep(0, math.NaN()))
	assert.Equal(t, 0.0, Sweep(math.Inf(1), 90))

	for _, pair := range [][2]float64{{10, -400}, {1e9, -3}, {-725.5, 12}, {359.999, 0}} {
		got := Sweep(pair[0], pair[1])
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Less(t, got, 360.0)
	}
}

func TestCompileClosedPolyline(t *testing.T) {
	poly := dxf.Polyline{Points: []dxf.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3}}, Closed: true}

	cmds := drawn(t, Compile([]dxf.Entity{poly}, DefaultOptions()))

	require.Len(t, cmds, 4)
	assert.Equal(t, gcode.Rapid, cmds[0].Kind)
	assert.Equal(t, [2]float64{4, 3}, [2]float64{cmds[2].X, cmds[2].Y})
	assert.Equal(t, [2]float64{0, 0}, [2]float64{cmds[3].X, cmds[3].Y})
	assert.Len(t, poly.Points, 3, "closing must not mutate the entity")
}

func TestCompileOpenPolyline(t *testing.T) {
	poly := dxf.Polyline{Points: []dxf.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}

	cmds := drawn(t, Compile([]dxf.Entity{poly}, DefaultOptions()))

	require.Len(t, cmds, 2)
	assert.Equal(t, 2.0, cmds[1].X)
}

func TestCompileSkipsEmptyPolyline(t *testing.T) {
	text, sum := CompileWithSummary([]dxf.Entity{
		dxf.Polyline{},
		dxf.Line{X2: 1},
	}, DefaultOptions())

	assert.Equal(t, 1, sum.Entities)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, map[string]int{"LINE": 1}, sum.ByKind)
	assert.Len(t, drawn(t, text), 2)
}

func TestCompileUsesOptions(t *testing.T) {
	text := Compile([]dxf.Entity{dxf.Line{X2: 1}}, Options{FeedRate: 250, SafeZ: 2.5, DrawZ: -0.5})

	assert.Contains(t, text, "G0 Z2.500 ; pen up\n")
	assert.Contains(t, text, "G1 Z-0.500 F250 ; pen down\n")
	assert.Contains(t, text, "G1 X1.000 Y0.000 F250\n")
}

func TestCompileReparsesEveryEntity(t *testing.T) {
	entities := []dxf.Entity{
		dxf.Line{X1: 0, Y1: 0, X2: 10, Y2: 10},
		dxf.Circle{CX: 50, CY: 50, R: 5},
		dxf.Arc{CX: 0, CY: 0, R: 3, StartDeg: 0, EndDeg: 90},
	}

	text, sum := CompileWithSummary(entities, DefaultOptions())
	prog := gcode.Parse(text)

	assert.Equal(t, 3, sum.Entities)
	assert.Equal(t, 1+1+(1+CircleSteps)+(1+ArcSteps), len(drawn(t, text)))
	assert.InDelta(t, 55, prog.Envelope.MaxX, 1e-9)
	assert.InDelta(t, 0, prog.Envelope.MinX, 1e-9)
}

func TestCompileEmpty(t *testing.T) {
	text := Compile(nil, DefaultOptions())

	assert.Equal(t, "G21 ; millimetres\nG90 ; absolute positioning\nG0 Z5.000 ; pen up\n", text)
}

func TestSampleCoversEveryKind(t *testing.T) {
	entities := dxf.Parse(SampleDXF)
	_, sum := CompileWithSummary(entities, DefaultOptions())

	for _, kind := range []string{"LINE", "POLYLINE", "CIRCLE", "ARC"} {
		assert.Positive(t, sum.ByKind[kind], "sample has no %s", kind)
	}
	assert.Zero(t, sum.Skipped)
	assert.Equal(t, SampleSource(DefaultOptions()), Compile(entities, DefaultOptions()))
}

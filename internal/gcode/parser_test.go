package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotsim/plotsim/internal/geom"
)

func TestParseCarriesCoordinatesForward(t *testing.T) {
	prog := Parse("G0 X5\nG1 Y10 F200")

	require.Len(t, prog.Commands, 2)
	assert.Equal(t, Command{Kind: Rapid, X: 5, Y: 0, FeedRate: 0, Line: 1}, prog.Commands[0])
	assert.Equal(t, Command{Kind: Linear, X: 5, Y: 10, FeedRate: 200, Line: 2}, prog.Commands[1])
}

func TestParseFeedRateCarriesAcrossKinds(t *testing.T) {
	prog := Parse("G1 X1 F300\nG0 X2\nG1 X3 F150\nG1 Y4")

	require.Len(t, prog.Commands, 4)
	feeds := []float64{300, 300, 150, 150}
	for i, c := range prog.Commands {
		assert.Equal(t, feeds[i], c.FeedRate, "command %d", i)
	}
}

func TestParseSkipsCommentsAndUnknownLines(t *testing.T) {
	text := `%
(header comment G1 X99)
; full line comment G0 X42

G21
M3 S1000
G1 X10 Y10 ; inline G0 X77
g01 x20 y-5.5
G2 X30 Y30 I5 J5
G00X1Y2`

	prog := Parse(text)
	require.Len(t, prog.Commands, 3)

	assert.Equal(t, Command{Kind: Linear, X: 10, Y: 10, Line: 7}, prog.Commands[0])
	assert.Equal(t, Command{Kind: Linear, X: 20, Y: -5.5, Line: 8}, prog.Commands[1])
	assert.Equal(t, Command{Kind: Rapid, X: 1, Y: 2, Line: 10}, prog.Commands[2])
}

func TestParseEmptyUsesDefaultEnvelope(t *testing.T) {
	for _, text := range []string{"", "\n\n", "; nothing\nM5\nG90"} {
		prog := Parse(text)
		assert.Empty(t, prog.Commands)
		assert.Equal(t, geom.DefaultEnvelope(), prog.Envelope, "text %q", text)
	}
}

func TestParseEnvelopeBoundsEveryCommand(t *testing.T) {
	text := "G0 X-3 Y4\nG1 X12\nG1 Y-8 F100\nG1 X0.5 Y0.25\nG0 X7 Y19"
	prog := Parse(text)

	require.NotEmpty(t, prog.Commands)
	assert.Equal(t, geom.Envelope{MinX: -3, MaxX: 12, MinY: -8, MaxY: 19}, prog.Envelope)
	for _, c := range prog.Commands {
		assert.True(t, prog.Envelope.Contains(c.X, c.Y), "command %+v outside envelope", c)
	}
	assert.Equal(t, prog.Envelope, EnvelopeOf(prog.Commands))
}

func TestParseEnvelopeUsesResolvedPoints(t *testing.T) {
	// Y is carried as 50, never 0, so MinY must be 50.
	prog := Parse("G0 X0 Y50\nG1 X10")
	assert.Equal(t, geom.Envelope{MinX: 0, MaxX: 10, MinY: 50, MaxY: 50}, prog.Envelope)
}

func TestProgramCounts(t *testing.T) {
	prog := Parse("G0 X1\nG1 X2\nG1 X3\nG0 X4\nG1 X5")
	assert.Equal(t, Counts{Total: 5, Rapid: 2, Linear: 3}, prog.Counts())
}

func TestFormatRoundTrip(t *testing.T) {
	src := Parse("G0 X1.25 Y2\nG1 X3 Y4 F900\nG1 X-5.125\nG0 Y0\nG1 X0 F450")
	out := Parse(Format(src.Commands))

	require.Len(t, out.Commands, len(src.Commands))
	for i := range src.Commands {
		want := src.Commands[i]
		got := out.Commands[i]
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.X, got.X)
		assert.Equal(t, want.Y, got.Y)
		assert.Equal(t, want.FeedRate, got.FeedRate)
	}
	assert.Equal(t, src.Envelope, out.Envelope)
}

func TestCoordPrecision(t *testing.T) {
	assert.Equal(t, "1.000", Coord(1))
	assert.Equal(t, "-0.333", Coord(-1.0/3))
	assert.Equal(t, "0.000", Coord(-0.0000001))
}

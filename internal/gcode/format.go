package gcode

import (
	"strconv"
	"strings"
)

// Coord formats a coordinate with the fixed 3-decimal precision used in
// every emitted program.
func Coord(v float64) string {
	if v == 0 {
		v = 0 // normalize -0
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Format re-emits commands as normalized motion text. F is written only
// when the feed rate differs from the one already in effect, so parsing
// the output yields the same commands.
func Format(cmds []Command) string {
	var b strings.Builder
	b.WriteString("G21 ; millimetres\n")
	b.WriteString("G90 ; absolute positioning\n")

	var feed float64
	for _, c := range cmds {
		b.WriteString(c.Kind.Code())
		b.WriteString(" X")
		b.WriteString(Coord(c.X))
		b.WriteString(" Y")
		b.WriteString(Coord(c.Y))
		if c.FeedRate != feed {
			b.WriteString(" F")
			b.WriteString(strconv.FormatFloat(c.FeedRate, 'f', -1, 64))
			feed = c.FeedRate
		}
		b.WriteByte('\n')
	}
	return b.String()
}

package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/plotsim/plotsim/internal/engine"
	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/geom"
)

// Style controls the SVG preview.
type Style struct {
	Width       float64
	Height      float64
	Padding     float64
	Background  string
	DrawStroke  string
	RapidStroke string
	TraceStroke string
	ToolFill    string
	StrokeWidth float64
}

func DefaultStyle() Style {
	return Style{
		Width:       800,
		Height:      600,
		Padding:     20,
		Background:  "#ffffff",
		DrawStroke:  "#1f2933",
		RapidStroke: "#9aa5b1",
		TraceStroke: "#e12d39",
		ToolFill:    "#e12d39",
		StrokeWidth: 1.5,
	}
}

// RenderSVG draws a program preview: linear moves solid, rapids dashed.
func RenderSVG(prog gcode.Program, style Style) string {
	return renderSVG(prog, nil, style)
}

// RenderPlaybackSVG draws the preview with the waypoints reached so far
// traced over it and a marker at the tool.
func RenderPlaybackSVG(prog gcode.Program, state engine.PlaybackState, style Style) string {
	return renderSVG(prog, &state, style)
}

func renderSVG(prog gcode.Program, state *engine.PlaybackState, style Style) string {
	view := FitView(prog.Envelope, style.Width, style.Height, style.Padding)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(style.Width), num(style.Height), num(style.Width), num(style.Height))
	if style.Background != "" {
		fmt.Fprintf(&b, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", style.Background)
	}

	for _, dc := range CompileDrawCommands(prog.Commands, view) {
		stroke, dash := style.DrawStroke, ""
		if dc.Kind == gcode.Rapid {
			stroke, dash = style.RapidStroke, ` stroke-dasharray="4 4"`
		}
		fmt.Fprintf(&b, `  <path class="%s" d="%s" fill="none" stroke="%s" stroke-width="%s"%s/>`+"\n",
			dc.Kind, pathData(dc.Path), stroke, num(style.StrokeWidth), dash)
	}

	if state != nil {
		writeTrace(&b, *state, view, style)
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func writeTrace(b *strings.Builder, state engine.PlaybackState, view geom.ViewTransform, style Style) {
	points := make([]PathCommand, 0, len(state.History)+1)
	for i, wp := range state.History {
		x, y := view.WorldToDisplay(wp.X, wp.Y)
		op := "L"
		if i == 0 {
			op = "M"
		}
		points = append(points, PathCommand{Op: op, X: x, Y: y})
	}
	tx, ty := view.WorldToDisplay(state.ToolX, state.ToolY)
	points = append(points, PathCommand{Op: "L", X: tx, Y: ty})

	fmt.Fprintf(b, `  <path class="trace" d="%s" fill="none" stroke="%s" stroke-width="%s"/>`+"\n",
		pathData(points), style.TraceStroke, num(style.StrokeWidth*2))
	fmt.Fprintf(b, `  <circle class="tool" cx="%s" cy="%s" r="%s" fill="%s"/>`+"\n",
		num(tx), num(ty), num(style.StrokeWidth*3), style.ToolFill)
}

func pathData(path []PathCommand) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.Op)
		b.WriteString(num(p.X))
		b.WriteByte(' ')
		b.WriteString(num(p.Y))
	}
	return b.String()
}

// num formats display coordinates with two decimals, trimming zeros.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

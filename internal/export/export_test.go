package export

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotsim/plotsim/internal/engine"
	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/geom"
)

const box = "G0 X0 Y0\nG1 X10 Y0 F100\nG1 X10 Y10\nG0 X20 Y10\nG1 X20 Y20"

func TestCompileDrawCommandsGroupsRuns(t *testing.T) {
	prog := gcode.Parse(box)
	view := FitView(prog.Envelope, 200, 200, 0)

	got := CompileDrawCommands(prog.Commands, view)

	require.Len(t, got, 3)
	assert.Equal(t, gcode.Linear, got[0].Kind)
	assert.Len(t, got[0].Path, 3)
	assert.Equal(t, 2, got[0].FirstLine)
	assert.Equal(t, gcode.Rapid, got[1].Kind)
	assert.Len(t, got[1].Path, 2)
	assert.Equal(t, gcode.Linear, got[2].Kind)

	// each path starts where the previous ended
	for i := 1; i < len(got); i++ {
		prevEnd := got[i-1].Path[len(got[i-1].Path)-1]
		assert.Equal(t, prevEnd.X, got[i].Path[0].X)
		assert.Equal(t, prevEnd.Y, got[i].Path[0].Y)
	}
}

func TestCompileDrawCommandsFlipsY(t *testing.T) {
	prog := gcode.Parse(box)
	view := FitView(prog.Envelope, 200, 200, 0)

	got := CompileDrawCommands(prog.Commands, view)

	start := got[0].Path[0]
	top := got[0].Path[2]
	assert.Greater(t, start.Y, top.Y, "world Y up must map to display Y down")
}

func TestCompileDrawCommandsEmpty(t *testing.T) {
	assert.Nil(t, CompileDrawCommands(nil, geom.NewViewTransform(10, 10, 0)))

	out, err := DrawCommandsToJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRenderSVG(t *testing.T) {
	svg := RenderSVG(gcode.Parse(box), DefaultStyle())

	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="600"`))
	assert.Equal(t, 2, strings.Count(svg, `class="linear"`))
	assert.Equal(t, 1, strings.Count(svg, `stroke-dasharray`))
	assert.NotContains(t, svg, "trace")
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
}

func TestRenderPlaybackSVG(t *testing.T) {
	prog := gcode.Parse(box)
	e := engine.NewEngine()
	e.Load(prog)
	e.Run(3)

	svg := RenderPlaybackSVG(prog, e.State(), DefaultStyle())

	assert.Contains(t, svg, `class="trace"`)
	assert.Contains(t, svg, `class="tool"`)
}

func TestNum(t *testing.T) {
	assert.Equal(t, "0", num(0))
	assert.Equal(t, "0", num(-0.001))
	assert.Equal(t, "12.5", num(12.5))
	assert.Equal(t, "100", num(100))
	assert.Equal(t, "-3.14", num(-3.14159))
}

func newTestHandler() *mux.Router {
	h := NewHandler(DefaultStyle())
	r := mux.NewRouter()
	r.HandleFunc("/export/svg", h.SVG).Methods("POST")
	r.HandleFunc("/export/draw", h.DrawCommands).Methods("POST")
	return r
}

func TestHandlerSVG(t *testing.T) {
	r := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/export/svg?width=400&height=300", strings.NewReader(box))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `width="400" height="300"`)

	req = httptest.NewRequest(http.MethodPost, "/export/svg?width=-5", strings.NewReader(box))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerDrawCommands(t *testing.T) {
	r := newTestHandler()

	body, _ := json.Marshal(map[string]string{"source": box})
	req := httptest.NewRequest(http.MethodPost, "/export/draw", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []DrawCommand
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got, 3)
}

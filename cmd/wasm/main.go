//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/plotsim/plotsim/internal/compiler"
	"github.com/plotsim/plotsim/internal/dxf"
	"github.com/plotsim/plotsim/internal/engine"
	"github.com/plotsim/plotsim/internal/export"
	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/geom"
)

var (
	eng  *engine.Engine
	prog gcode.Program
	view = geom.NewViewTransform(800, 600, 20)
)

func main() {
	eng = engine.NewEngine()

	// Create the engine API object
	plotsimEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	plotsimEngine.Set("load", js.FuncOf(load))
	plotsimEngine.Set("loadSample", js.FuncOf(loadSample))
	plotsimEngine.Set("compileDXF", js.FuncOf(compileDXF))
	plotsimEngine.Set("play", js.FuncOf(play))
	plotsimEngine.Set("pause", js.FuncOf(pause))
	plotsimEngine.Set("resume", js.FuncOf(resume))
	plotsimEngine.Set("reset", js.FuncOf(reset))
	plotsimEngine.Set("setSpeed", js.FuncOf(setSpeed))
	plotsimEngine.Set("resize", js.FuncOf(resize))
	plotsimEngine.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← engine) ---
	plotsimEngine.Set("render", js.FuncOf(render))
	plotsimEngine.Set("getState", js.FuncOf(getState))
	plotsimEngine.Set("getFrame", js.FuncOf(getFrame))
	plotsimEngine.Set("getHistorySince", js.FuncOf(getHistorySince))
	plotsimEngine.Set("getEnvelope", js.FuncOf(getEnvelope))
	plotsimEngine.Set("getCounts", js.FuncOf(getCounts))
	plotsimEngine.Set("getView", js.FuncOf(getView))
	plotsimEngine.Set("displayToWorld", js.FuncOf(displayToWorld))

	// Register on global scope
	js.Global().Set("plotsimEngine", plotsimEngine)

	// Signal that WASM is ready
	js.Global().Set("plotsimWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func toJSON(v any) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf(map[string]any{"error": err.Error()})
	}
	return js.ValueOf(string(data))
}

func setProgram(p gcode.Program) {
	prog = p
	eng.Load(p)
	view.Fit(p.Envelope, view.Width, view.Height)
}

// --- Command Handlers ---

func load(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing program text"})
	}
	setProgram(gcode.Parse(args[0].String()))
	return js.ValueOf(map[string]any{"ok": true, "commands": len(prog.Commands)})
}

func loadSample(this js.Value, args []js.Value) any {
	setProgram(gcode.Parse(compiler.SampleSource(compiler.DefaultOptions())))
	return js.ValueOf(map[string]any{"ok": true, "commands": len(prog.Commands)})
}

// compileDXF compiles DXF text, loads the result and returns the motion
// text.
func compileDXF(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing DXF text"})
	}
	text := compiler.Compile(dxf.Parse(args[0].String()), compiler.DefaultOptions())
	setProgram(gcode.Parse(text))
	return js.ValueOf(text)
}

func play(this js.Value, args []js.Value) any {
	eng.Play()
	return nil
}

func pause(this js.Value, args []js.Value) any {
	eng.Pause()
	return nil
}

func resume(this js.Value, args []js.Value) any {
	eng.Resume()
	return nil
}

func reset(this js.Value, args []js.Value) any {
	eng.Reset()
	return nil
}

// numbers reports whether the first n args are JS numbers. Value.Float
// panics on anything else.
func numbers(args []js.Value, n int) bool {
	if len(args) < n {
		return false
	}
	for _, a := range args[:n] {
		if a.Type() != js.TypeNumber {
			return false
		}
	}
	return true
}

func setSpeed(this js.Value, args []js.Value) any {
	if !numbers(args, 1) {
		return nil
	}
	eng.SetSpeed(args[0].Float())
	return nil
}

// resize refits the view to a new surface. A program with a degenerate
// envelope keeps its current transform.
func resize(this js.Value, args []js.Value) any {
	if !numbers(args, 2) {
		return js.ValueOf(false)
	}
	w, h := args[0].Float(), args[1].Float()
	if !(w > 0) || !(h > 0) {
		return js.ValueOf(false)
	}
	return js.ValueOf(view.Fit(eng.Envelope(), w, h))
}

// tick is called from requestAnimationFrame. It returns the frame JSON.
func tick(this js.Value, args []js.Value) any {
	return toJSON(eng.Tick())
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	out, err := export.DrawCommandsToJSON(export.CompileDrawCommands(prog.Commands, view))
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func getState(this js.Value, args []js.Value) any {
	return toJSON(eng.State())
}

func getFrame(this js.Value, args []js.Value) any {
	return toJSON(eng.Frame())
}

func getHistorySince(this js.Value, args []js.Value) any {
	from := 0
	if numbers(args, 1) {
		from = args[0].Int()
	}
	return toJSON(eng.HistorySince(from))
}

func getEnvelope(this js.Value, args []js.Value) any {
	return toJSON(eng.Envelope())
}

func getCounts(this js.Value, args []js.Value) any {
	return toJSON(eng.Counts())
}

func getView(this js.Value, args []js.Value) any {
	return toJSON(view)
}

func displayToWorld(this js.Value, args []js.Value) any {
	if !numbers(args, 2) {
		return nil
	}
	x, y := view.DisplayToWorld(args[0].Float(), args[1].Float())
	return js.ValueOf(map[string]any{"x": x, "y": y})
}

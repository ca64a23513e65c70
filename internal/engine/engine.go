package engine

import (
	"math"

	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/geom"
)

// Speed bounds, as a percentage.
const (
	MinSpeed     = 1
	MaxSpeed     = 1000
	DefaultSpeed = 100
)

// Engine advances a virtual tool along a command list. It owns its
// PlaybackState and is not safe for concurrent use; the host driver calls
// Step with the tick handed out by PendingTick, once per scheduling tick.
type Engine struct {
	// Program state
	cmds   []gcode.Command
	env    geom.Envelope
	counts gcode.Counts

	// Playback state
	phase    Phase
	pose     Pose
	history  []Waypoint
	progress float64
	speed    float64

	// Scheduling: pending is the tick Step will accept, 0 when none.
	pending  uint64
	lastTick uint64
}

// NewEngine creates an engine with no program loaded.
func NewEngine() *Engine {
	e := &Engine{
		env:   geom.DefaultEnvelope(),
		speed: DefaultSpeed,
	}
	e.Reset()
	return e
}

// --- Commands ---

// Load resets the engine and swaps in a new program.
func (e *Engine) Load(prog gcode.Program) {
	e.Reset()
	e.cmds = prog.Commands
	e.env = prog.Envelope
	e.counts = prog.Counts()
}

// LoadText parses motion text and loads the result.
func (e *Engine) LoadText(text string) {
	e.Load(gcode.Parse(text))
}

// Reset returns to Idle with the tool at the origin and a single start
// entry in the history. Any pending tick is cancelled.
func (e *Engine) Reset() {
	e.phase = Idle
	e.pose = Pose{}
	e.history = []Waypoint{{X: 0, Y: 0, Kind: gcode.Rapid}}
	e.progress = 0
	e.cancel()
}

// Play starts a run from Idle, resumes from Paused, or restarts from
// Complete. It does nothing without commands or while already running.
func (e *Engine) Play() {
	if len(e.cmds) == 0 {
		return
	}
	switch e.phase {
	case Idle:
		e.phase = Running
		e.schedule()
	case Paused:
		e.Resume()
	case Complete:
		e.Reset()
		e.phase = Running
		e.schedule()
	}
}

// Pause freezes the run and cancels the pending tick.
func (e *Engine) Pause() {
	if e.phase != Running {
		return
	}
	e.phase = Paused
	e.cancel()
}

// Resume continues a paused run from the frozen pose.
func (e *Engine) Resume() {
	if e.phase != Paused {
		return
	}
	e.phase = Running
	e.schedule()
}

// SetSpeed sets the speed percentage used by the next step. NaN is ignored.
func (e *Engine) SetSpeed(pct float64) {
	if math.IsNaN(pct) {
		return
	}
	if pct < MinSpeed {
		pct = MinSpeed
	}
	if pct > MaxSpeed {
		pct = MaxSpeed
	}
	e.speed = pct
}

// Step runs one interpolation step if tick is the pending tick and the
// engine is running. Stale or cancelled ticks are ignored. It reports
// whether a step ran.
func (e *Engine) Step(tick uint64) bool {
	if tick == 0 || tick != e.pending || e.phase != Running {
		return false
	}
	e.pending = 0

	next, snapped := Advance(e.pose, e.cmds, e.speed)
	e.pose = next
	if snapped {
		target := e.cmds[next.Index-1]
		e.history = append(e.history, Waypoint{X: target.X, Y: target.Y, Kind: target.Kind})
		e.progress = float64(next.Index) / float64(len(e.cmds))
	}

	if next.Index >= len(e.cmds) {
		e.phase = Complete
		return true
	}
	e.schedule()
	return true
}

// Tick steps with the pending tick, if any, and returns the resulting frame.
func (e *Engine) Tick() Frame {
	if tick, ok := e.PendingTick(); ok {
		e.Step(tick)
	}
	return e.Frame()
}

// Run plays to completion or until limit steps have run, and returns the
// number of steps taken. A limit of 0 or less means no limit.
func (e *Engine) Run(limit int) int {
	e.Play()
	steps := 0
	for limit <= 0 || steps < limit {
		tick, ok := e.PendingTick()
		if !ok || !e.Step(tick) {
			break
		}
		steps++
	}
	return steps
}

func (e *Engine) schedule() {
	e.lastTick++
	e.pending = e.lastTick
}

func (e *Engine) cancel() {
	e.pending = 0
}

// --- Queries ---

// PendingTick returns the tick the next Step must carry.
func (e *Engine) PendingTick() (uint64, bool) {
	return e.pending, e.pending != 0
}

// Phase returns the lifecycle phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// State returns a snapshot whose history does not alias the engine's.
func (e *Engine) State() PlaybackState {
	history := make([]Waypoint, len(e.history))
	copy(history, e.history)
	return PlaybackState{
		CommandIndex: e.pose.Index,
		ToolX:        e.pose.X,
		ToolY:        e.pose.Y,
		FeedRate:     e.pose.FeedRate,
		Running:      e.phase == Running,
		Paused:       e.phase == Paused,
		History:      history,
	}
}

// HistorySince returns a copy of the waypoints from index from onward.
func (e *Engine) HistorySince(from int) []Waypoint {
	if from < 0 {
		from = 0
	}
	if from >= len(e.history) {
		return nil
	}
	out := make([]Waypoint, len(e.history)-from)
	copy(out, e.history[from:])
	return out
}

// HistoryLen returns the number of committed waypoints.
func (e *Engine) HistoryLen() int {
	return len(e.history)
}

// Commands returns the loaded command list.
func (e *Engine) Commands() []gcode.Command {
	out := make([]gcode.Command, len(e.cmds))
	copy(out, e.cmds)
	return out
}

// Envelope returns the loaded program's envelope.
func (e *Engine) Envelope() geom.Envelope {
	return e.env
}

// Counts returns the command totals by kind.
func (e *Engine) Counts() gcode.Counts {
	return e.counts
}

// Progress returns the fraction of commands reached, in [0, 1].
func (e *Engine) Progress() float64 {
	return e.progress
}

// Speed returns the speed percentage.
func (e *Engine) Speed() float64 {
	return e.speed
}

// CurrentLine returns the source line of the command being executed, the
// last command's line once complete, or 0 when nothing is loaded.
func (e *Engine) CurrentLine() int {
	if len(e.cmds) == 0 {
		return 0
	}
	if e.pose.Index >= len(e.cmds) {
		return e.cmds[len(e.cmds)-1].Line
	}
	return e.cmds[e.pose.Index].Line
}

// Frame returns the pose and progress for rendering.
func (e *Engine) Frame() Frame {
	return Frame{
		Phase:    e.phase,
		Index:    e.pose.Index,
		Total:    len(e.cmds),
		X:        e.pose.X,
		Y:        e.pose.Y,
		FeedRate: e.pose.FeedRate,
		Progress: e.progress,
		Line:     e.CurrentLine(),
		Speed:    e.speed,
	}
}

package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/plotsim/plotsim/internal/engine"
	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/geom"
	"github.com/plotsim/plotsim/internal/metrics"
)

// Loader fetches the motion program a room plays back.
type Loader func(ctx context.Context, programID string) (gcode.Program, error)

// Broadcaster delivers player output to the room.
type Broadcaster interface {
	Broadcast(programID string, msg *Message, excludeClientID string)
	SendTo(programID, clientID string, msg *Message)
}

type controlRequest struct {
	clientID string
	msg      *Message
}

// Player drives one engine for a room. All engine access happens on the
// goroutine running Run; other goroutines talk to it through Submit.
type Player struct {
	programID string
	engine    *engine.Engine
	view      geom.ViewTransform
	tickRate  time.Duration
	out       Broadcaster
	loader    Loader
	metrics   *metrics.Collector

	controls  chan controlRequest
	serverSeq int64
	sent      int // history entries already published

	timer *time.Timer
	armed uint64 // tick the timer will deliver, 0 when idle
}

// PlayerConfig holds the room-independent player settings.
type PlayerConfig struct {
	TickRate     time.Duration
	DefaultSpeed float64
	View         geom.ViewTransform
}

func NewPlayer(programID string, prog gcode.Program, cfg PlayerConfig, out Broadcaster, loader Loader, m *metrics.Collector) *Player {
	p := &Player{
		programID: programID,
		engine:    engine.NewEngine(),
		view:      cfg.View,
		tickRate:  cfg.TickRate,
		out:       out,
		loader:    loader,
		metrics:   m,
		controls:  make(chan controlRequest, 32),
	}
	if cfg.DefaultSpeed > 0 {
		p.engine.SetSpeed(cfg.DefaultSpeed)
	}
	p.load(prog)
	return p
}

// Submit queues a control message from a client. It drops the request and
// returns false when the queue is full.
func (p *Player) Submit(clientID string, msg *Message) bool {
	select {
	case p.controls <- controlRequest{clientID: clientID, msg: msg}:
		return true
	default:
		return false
	}
}

// Run serves controls and ticks until ctx is done.
func (p *Player) Run(ctx context.Context) {
	defer p.disarm()

	for {
		var tick <-chan time.Time
		if p.timer != nil {
			tick = p.timer.C
		}

		select {
		case <-ctx.Done():
			return
		case req := <-p.controls:
			p.handleControl(ctx, req)
		case <-tick:
			p.timer = nil
			p.onTick(p.armed)
		}
		p.rearm()
	}
}

// rearm starts the timer for the engine's pending tick, or stops it when
// nothing is pending.
func (p *Player) rearm() {
	tick, ok := p.engine.PendingTick()
	if !ok {
		p.disarm()
		return
	}
	if p.timer != nil && p.armed == tick {
		return
	}
	p.disarm()
	p.armed = tick
	p.timer = time.NewTimer(p.tickRate)
}

func (p *Player) disarm() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.armed = 0
}

// onTick advances the engine by one step and publishes the frame. A stale
// tick is ignored by the engine.
func (p *Player) onTick(tick uint64) {
	if !p.engine.Step(tick) {
		return
	}
	p.metrics.RecordStep()
	p.publishFrame()

	if p.engine.Phase() == engine.Complete {
		p.metrics.RecordCompletion()
		p.publishState()
		slog.Info("playback complete", "program", p.programID, "commands", len(p.engine.Commands()))
	}
}

// Sync asks the player to send a full snapshot to one client.
func (p *Player) Sync(clientID string) bool {
	return p.Submit(clientID, nil)
}

func (p *Player) handleControl(ctx context.Context, req controlRequest) {
	if req.msg == nil {
		p.out.SendTo(p.programID, req.clientID, p.StateMessage())
		return
	}

	var ctl ControlPayload
	if len(req.msg.Payload) > 0 {
		if err := json.Unmarshal(req.msg.Payload, &ctl); err != nil {
			p.nack(req.clientID, "", "invalid control payload")
			return
		}
	}

	if reason := p.apply(ctx, req.msg.Type, ctl); reason != "" {
		p.nack(req.clientID, ctl.ID, reason)
		return
	}

	p.serverSeq++
	ack := newMessage(TypeControlAck, ControlAckPayload{
		ControlID: ctl.ID,
		ServerSeq: p.serverSeq,
		Phase:     p.engine.Phase(),
	})
	ack.Seq = p.serverSeq
	p.out.SendTo(p.programID, req.clientID, ack)
	p.publishState()
}

// apply runs a control against the engine. It returns a rejection reason,
// or "" on success.
func (p *Player) apply(ctx context.Context, typ string, ctl ControlPayload) string {
	e := p.engine
	switch typ {
	case TypeControlPlay:
		if len(e.Commands()) == 0 {
			return "program has no commands"
		}
		if e.Phase() == engine.Complete {
			p.sent = 0
		}
		e.Play()
	case TypeControlPause:
		if e.Phase() != engine.Running {
			return "not running"
		}
		e.Pause()
	case TypeControlResume:
		if e.Phase() != engine.Paused {
			return "not paused"
		}
		e.Resume()
	case TypeControlReset:
		e.Reset()
		p.sent = 0
	case TypeControlSpeed:
		if ctl.Speed == nil {
			return "missing speed"
		}
		e.SetSpeed(*ctl.Speed)
	case TypeControlResize:
		if !(ctl.Width > 0) || !(ctl.Height > 0) {
			return "invalid surface size"
		}
		// a degenerate envelope keeps the current transform
		p.view.Fit(e.Envelope(), ctl.Width, ctl.Height)
	case TypeControlReload:
		if p.loader == nil {
			return "reload unavailable"
		}
		prog, err := p.loader(ctx, p.programID)
		if err != nil {
			slog.Error("reload program", "program", p.programID, "error", err)
			return "reload failed"
		}
		speed := e.Speed()
		p.load(prog)
		e.SetSpeed(speed)
	default:
		return "unknown control " + typ
	}
	return ""
}

func (p *Player) load(prog gcode.Program) {
	p.engine.Load(prog)
	p.sent = 0
	p.view.Fit(p.engine.Envelope(), p.view.Width, p.view.Height)
}

func (p *Player) nack(clientID, controlID, reason string) {
	p.out.SendTo(p.programID, clientID, newMessage(TypeControlNack, ControlNackPayload{
		ControlID: controlID,
		Reason:    reason,
	}))
}

func (p *Player) publishFrame() {
	from := p.sent
	waypoints := p.engine.HistorySince(from)
	p.sent = p.engine.HistoryLen()

	msg := newMessage(TypePlaybackFrame, FramePayload{
		Frame:       p.engine.Frame(),
		HistoryFrom: from,
		Waypoints:   waypoints,
	})
	msg.Seq = p.serverSeq
	p.out.Broadcast(p.programID, msg, "")
}

func (p *Player) publishState() {
	msg := p.StateMessage()
	p.sent = p.engine.HistoryLen()
	p.out.Broadcast(p.programID, msg, "")
}

// StateMessage builds a full snapshot. It must be called from the Run
// goroutine, or before Run starts.
func (p *Player) StateMessage() *Message {
	msg := newMessage(TypePlaybackState, StatePayload{
		Frame:    p.engine.Frame(),
		State:    p.engine.State(),
		Envelope: p.engine.Envelope(),
		Counts:   p.engine.Counts(),
		View:     p.view,
	})
	msg.Seq = p.serverSeq
	return msg
}

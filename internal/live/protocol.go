package live

import (
	"encoding/json"
	"log/slog"

	"github.com/plotsim/plotsim/internal/engine"
	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/geom"
)

type Message struct {
	Type      string          `json:"type"`
	ProgramID string          `json:"programId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Playback control (client -> server)
	TypeControlPlay   = "control.play"
	TypeControlPause  = "control.pause"
	TypeControlResume = "control.resume"
	TypeControlReset  = "control.reset"
	TypeControlSpeed  = "control.speed"
	TypeControlResize = "control.resize"
	TypeControlReload = "control.reload"

	// Control replies (server -> sender)
	TypeControlAck  = "control.ack"
	TypeControlNack = "control.nack"

	// Playback stream (server -> room)
	TypePlaybackFrame = "playback.frame"
	TypePlaybackState = "playback.state"

	// Viewers
	TypeViewerUpdate = "viewer.update"
	TypeViewerState  = "viewer.state"
	TypeViewerJoin   = "viewer.join"
	TypeViewerLeave  = "viewer.leave"
)

// ControlPayload carries a client control request. ID is echoed in the
// ack or nack.
type ControlPayload struct {
	ID     string   `json:"id"`
	Speed  *float64 `json:"speed,omitempty"`
	Width  float64  `json:"width,omitempty"`
	Height float64  `json:"height,omitempty"`
}

type ControlAckPayload struct {
	ControlID string       `json:"controlId"`
	ServerSeq int64        `json:"serverSeq"`
	Phase     engine.Phase `json:"phase"`
}

type ControlNackPayload struct {
	ControlID string `json:"controlId"`
	Reason    string `json:"reason"`
}

// FramePayload reports one playback step. Waypoints holds the history
// entries committed since the previous frame, starting at HistoryFrom.
type FramePayload struct {
	engine.Frame
	HistoryFrom int               `json:"historyFrom"`
	Waypoints   []engine.Waypoint `json:"waypoints,omitempty"`
}

// StatePayload is a full snapshot, sent on join and after every control.
type StatePayload struct {
	Frame    engine.Frame         `json:"frame"`
	State    engine.PlaybackState `json:"state"`
	Envelope geom.Envelope        `json:"envelope"`
	Counts   gcode.Counts         `json:"counts"`
	View     geom.ViewTransform   `json:"view"`
}

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	UserID    string `json:"userId"`
	ProgramID string `json:"programId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ViewerPayload is what a viewer shares with the room. Cursor is in world
// coordinates.
type ViewerPayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ViewerStatePayload struct {
	Viewers map[string]*ViewerPayload `json:"viewers"`
}

type ViewerJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type ViewerLeavePayload struct {
	UserID string `json:"userId"`
}

// newMessage marshals payload into a message of type typ.
func newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "type", typ, "error", err)
		data = []byte("null")
	}
	return &Message{Type: typ, Payload: data}
}

package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/plotsim/plotsim/internal/metrics"
)

// Room groups the viewers of one program around a shared player.
type Room struct {
	programID string
	clients   map[string]*Client // clientID -> client
	viewers   *ViewerRoster
	player    *Player
	cancel    context.CancelFunc
}

func NewRoom(programID string, player *Player, cancel context.CancelFunc) *Room {
	return &Room{
		programID: programID,
		clients:   make(map[string]*Client),
		viewers:   NewViewerRoster(),
		player:    player,
		cancel:    cancel,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // programID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	loader  Loader
	cfg     PlayerConfig
	metrics *metrics.Collector
}

func NewHub(loader Loader, cfg PlayerConfig, m *metrics.Collector) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		loader:     loader,
		cfg:        cfg,
		metrics:    m,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeRooms()
			return
		}
	}
}

// Stop ends every room and the Run loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// RoomCount reports the number of active rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) addClient(client *Client) {
	h.mu.RLock()
	room, ok := h.rooms[client.ProgramID]
	h.mu.RUnlock()

	if !ok {
		var err error
		room, err = h.openRoom(client.ProgramID)
		if err != nil {
			slog.Error("open room", "program", client.ProgramID, "error", err)
			client.Send(newMessage(TypeError, ErrorPayload{Message: "program unavailable"}))
			client.closeSend()
			return
		}
	}

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()
	h.metrics.ViewerJoined()

	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:  client.ClientID,
		UserID:    client.UserID,
		ProgramID: client.ProgramID,
	}))

	// Send current viewers and playback state to new client
	client.Send(room.viewers.StateMessage())
	room.player.Sync(client.ClientID)

	// Broadcast join to other clients
	joinMsg := newMessage(TypeViewerJoin, ViewerJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.Broadcast(client.ProgramID, joinMsg, client.ClientID)

	slog.Info("viewer joined", "user", client.UserID, "program", client.ProgramID)
}

// openRoom loads the program and starts its player.
func (h *Hub) openRoom(programID string) (*Room, error) {
	prog, err := h.loader(context.Background(), programID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	player := NewPlayer(programID, prog, h.cfg, h, h.loader, h.metrics)
	room := NewRoom(programID, player, cancel)

	h.mu.Lock()
	h.rooms[programID] = room
	h.mu.Unlock()

	go player.Run(ctx)
	h.metrics.SessionStarted()
	slog.Info("room opened", "program", programID, "commands", len(prog.Commands))
	return room, nil
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProgramID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := room.clients[client.ClientID]; !member {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.viewers.Remove(client.UserID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.ProgramID)
	}
	h.mu.Unlock()
	h.metrics.ViewerLeft()

	if empty {
		room.cancel()
		h.metrics.SessionEnded()
		slog.Info("room closed", "program", client.ProgramID)
		return
	}

	// Broadcast leave to remaining clients
	leaveMsg := newMessage(TypeViewerLeave, ViewerLeavePayload{UserID: client.UserID})
	leaveMsg.UserID = client.UserID
	h.Broadcast(client.ProgramID, leaveMsg, "")

	slog.Info("viewer left", "user", client.UserID, "program", client.ProgramID)
}

func (h *Hub) closeRooms() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for _, room := range rooms {
		room.cancel()
		for _, c := range room.clients {
			c.closeSend()
			h.metrics.ViewerLeft()
		}
		h.metrics.SessionEnded()
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeViewerUpdate:
		h.handleViewerUpdate(sender, msg)
	case TypeControlPlay, TypeControlPause, TypeControlResume, TypeControlReset,
		TypeControlSpeed, TypeControlResize, TypeControlReload:
		h.handleControl(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type " + msg.Type}))
	}
}

func (h *Hub) handleControl(sender *Client, msg *Message) {
	h.mu.RLock()
	room, ok := h.rooms[sender.ProgramID]
	h.mu.RUnlock()
	if !ok {
		nackControl(sender, msg, "room not ready")
		return
	}

	if !room.player.Submit(sender.ClientID, msg) {
		nackControl(sender, msg, "player busy")
	}
}

func nackControl(sender *Client, msg *Message, reason string) {
	var ctl ControlPayload
	json.Unmarshal(msg.Payload, &ctl)
	sender.Send(newMessage(TypeControlNack, ControlNackPayload{
		ControlID: ctl.ID,
		Reason:    reason,
	}))
}

func (h *Hub) handleViewerUpdate(sender *Client, msg *Message) {
	var viewer ViewerPayload
	if err := json.Unmarshal(msg.Payload, &viewer); err != nil {
		slog.Warn("invalid viewer payload", "error", err)
		return
	}

	viewer.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.ProgramID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.viewers.Update(sender.UserID, &viewer)

	// Broadcast to other clients in room
	outMsg := newMessage(TypeViewerUpdate, viewer)
	outMsg.UserID = sender.UserID
	h.Broadcast(sender.ProgramID, outMsg, sender.ClientID)
}

// Broadcast sends msg to every client in the room except excludeClientID.
func (h *Hub) Broadcast(programID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[programID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

// SendTo delivers msg to one client of the room.
func (h *Hub) SendTo(programID, clientID string, msg *Message) {
	h.mu.RLock()
	var c *Client
	if room, ok := h.rooms[programID]; ok {
		c = room.clients[clientID]
	}
	h.mu.RUnlock()

	if c != nil {
		c.Send(msg)
	}
}

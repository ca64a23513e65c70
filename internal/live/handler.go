package live

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/plotsim/plotsim/internal/auth"
	"github.com/plotsim/plotsim/internal/program"
)

// Handler upgrades /ws/program/{programId} requests into room clients.
type Handler struct {
	hub            *Hub
	auth           *auth.Service
	programs       *program.Service
	originPatterns []string
}

func NewHandler(hub *Hub, authSvc *auth.Service, programs *program.Service, originPatterns []string) *Handler {
	return &Handler{
		hub:            hub,
		auth:           authSvc,
		programs:       programs,
		originPatterns: originPatterns,
	}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	programID := mux.Vars(r)["programId"]

	var userID string
	var displayName string

	if programID == program.SampleID {
		// Anonymous viewer for the sample program
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Auth via query param for stored programs
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = h.auth.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		switch err := h.programs.CanView(r.Context(), programID, userID); {
		case errors.Is(err, program.ErrNotFound):
			http.Error(w, "program not found", http.StatusNotFound)
			return
		case errors.Is(err, program.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		case err != nil:
			slog.Error("check program access", "program", programID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		user, err := h.auth.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, userID, displayName, programID, clientID)

	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

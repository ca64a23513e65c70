package program

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/plotsim/plotsim/internal/auth"
	"github.com/plotsim/plotsim/internal/export"
	"github.com/plotsim/plotsim/internal/gcode"
)

// ExportGCode handles GET /api/programs/{programId}/export/gcode. With
// normalize=true the commands are re-emitted through gcode.Format.
func (h *Handler) ExportGCode(w http.ResponseWriter, r *http.Request) {
	p, source, ok := h.loadLatest(w, r)
	if !ok {
		return
	}

	if normalize, _ := strconv.ParseBool(r.URL.Query().Get("normalize")); normalize {
		source = gcode.Format(gcode.Parse(source).Commands)
	}

	w.Header().Set("Content-Type", "text/x-gcode; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.gcode"`, sanitize(p.Name)))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, source)

	slog.Info("export complete", "program", p.ID, "format", "gcode", "size", len(source))
}

// ExportSVG handles GET /api/programs/{programId}/export/svg.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	style, err := export.StyleFromQuery(r, h.style)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	_, source, ok := h.loadLatest(w, r)
	if !ok {
		return
	}

	export.WriteSVG(w, export.RenderSVG(gcode.Parse(source), style))
}

func (h *Handler) loadLatest(w http.ResponseWriter, r *http.Request) (*Program, string, bool) {
	userID := auth.UserIDFromContext(r.Context())
	programID := mux.Vars(r)["programId"]

	p, err := h.service.Get(r.Context(), programID, userID)
	if err != nil {
		handleServiceError(w, err)
		return nil, "", false
	}
	source, err := h.service.LatestSource(r.Context(), programID, userID)
	if err != nil {
		handleServiceError(w, err)
		return nil, "", false
	}
	return p, source, true
}

func sanitize(name string) string {
	if name == "" {
		return "program"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}

package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/plotsim/plotsim/internal/gcode"
)

const (
	maxSourceSize = 5 << 20 // 5MB
	maxSurface    = 8192
)

type Handler struct {
	style Style
}

// NewHandler creates an export handler. style supplies the default
// surface size and colors.
func NewHandler(style Style) *Handler {
	return &Handler{style: style}
}

// SVG handles POST /export/svg. The body is motion text, or JSON with a
// "source" field. width, height and padding query parameters override the
// default surface.
func (h *Handler) SVG(w http.ResponseWriter, r *http.Request) {
	style, err := StyleFromQuery(r, h.style)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	source, err := readSource(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	WriteSVG(w, RenderSVG(gcode.Parse(source), style))
}

// DrawCommands handles POST /export/draw, returning the fitted paths as
// JSON for canvas clients.
func (h *Handler) DrawCommands(w http.ResponseWriter, r *http.Request) {
	style, err := StyleFromQuery(r, h.style)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	source, err := readSource(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	prog := gcode.Parse(source)
	view := FitView(prog.Envelope, style.Width, style.Height, style.Padding)
	out, err := DrawCommandsToJSON(CompileDrawCommands(prog.Commands, view))
	if err != nil {
		slog.Error("encode draw commands", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out)
}

// StyleFromQuery applies width, height and padding query parameters over
// base.
func StyleFromQuery(r *http.Request, base Style) (Style, error) {
	style := base
	q := r.URL.Query()
	for _, f := range []struct {
		key string
		dst *float64
		min float64
	}{
		{"width", &style.Width, 1},
		{"height", &style.Height, 1},
		{"padding", &style.Padding, 0},
	} {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < f.min || v > maxSurface {
			return Style{}, fmt.Errorf("invalid %s %q", f.key, raw)
		}
		*f.dst = v
	}
	return style, nil
}

func readSource(w http.ResponseWriter, r *http.Request) (string, error) {
	body := http.MaxBytesReader(w, r.Body, maxSourceSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req struct {
			Source string `json:"source"`
		}
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return "", errors.New("invalid request body")
		}
		return req.Source, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", errors.New("request body too large")
	}
	return string(data), nil
}

func WriteSVG(w http.ResponseWriter, svg string) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, svg)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

package program

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/plotsim/plotsim/internal/auth"
	"github.com/plotsim/plotsim/internal/compiler"
	"github.com/plotsim/plotsim/internal/export"
)

const maxSourceSize = 5 << 20 // 5MB

type Handler struct {
	service *Service
	style   export.Style
}

// NewHandler creates the program handler. style is the default surface
// for SVG exports.
func NewHandler(service *Service, style export.Style) *Handler {
	return &Handler{service: service, style: style}
}

// Mount registers the public tool routes on public and the owner routes
// on api, which is expected to carry the auth middleware.
func (h *Handler) Mount(public, api *mux.Router) {
	public.HandleFunc("/parse", h.Parse).Methods("POST", "OPTIONS")
	public.HandleFunc("/compile", h.Compile).Methods("POST", "OPTIONS")
	public.HandleFunc("/sample", h.Sample).Methods("GET")

	api.HandleFunc("/programs", h.List).Methods("GET")
	api.HandleFunc("/programs", h.Create).Methods("POST")
	api.HandleFunc("/programs/import", h.Import).Methods("POST")
	api.HandleFunc("/programs/{programId}", h.Get).Methods("GET")
	api.HandleFunc("/programs/{programId}", h.Delete).Methods("DELETE")
	api.HandleFunc("/programs/{programId}/source", h.LatestSource).Methods("GET")
	api.HandleFunc("/programs/{programId}/analysis", h.Analyze).Methods("GET")
	api.HandleFunc("/programs/{programId}/revisions", h.ListRevisions).Methods("GET")
	api.HandleFunc("/programs/{programId}/revisions", h.AddRevision).Methods("POST")
	api.HandleFunc("/programs/{programId}/export/gcode", h.ExportGCode).Methods("GET")
	api.HandleFunc("/programs/{programId}/export/svg", h.ExportSVG).Methods("GET")
}

type sourceRequest struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Source string `json:"source"`
}

// Parse handles POST /parse. The body is motion text, or JSON with a
// "source" field.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSource(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.Parse(req.Source))
}

// Compile handles POST /compile with DXF text in the body.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSource(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.Compile(req.Source))
}

// Sample handles GET /sample, returning the built-in program's motion text.
func (h *Handler) Sample(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, compiler.SampleSource(h.service.Options()))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req sourceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSourceSize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	program, err := h.service.Create(r.Context(), userID, req.Name, req.Format, req.Source)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, program)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	programID := mux.Vars(r)["programId"]

	program, err := h.service.Get(r.Context(), programID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, program)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	programs, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list programs failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, programs)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	programID := mux.Vars(r)["programId"]

	if err := h.service.Delete(r.Context(), programID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LatestSource(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	programID := mux.Vars(r)["programId"]

	source, err := h.service.LatestSource(r.Context(), programID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeText(w, http.StatusOK, source)
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	programID := mux.Vars(r)["programId"]

	analysis, err := h.service.Analyze(r.Context(), programID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (h *Handler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	programID := mux.Vars(r)["programId"]

	revs, err := h.service.ListRevisions(r.Context(), programID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, revs)
}

func (h *Handler) AddRevision(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	programID := mux.Vars(r)["programId"]

	req, ok := decodeSource(w, r)
	if !ok {
		return
	}

	rev, err := h.service.AddRevision(r.Context(), programID, userID, req.Format, req.Source)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rev)
}

// decodeSource reads a JSON sourceRequest or, for any other content type,
// the raw body as the source. A format query parameter applies to raw
// bodies.
func decodeSource(w http.ResponseWriter, r *http.Request) (sourceRequest, bool) {
	body := http.MaxBytesReader(w, r.Body, maxSourceSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req sourceRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return sourceRequest{}, false
		}
		return req, true
	}

	data, err := io.ReadAll(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body too large"})
		return sourceRequest{}, false
	}
	return sourceRequest{Source: string(data), Format: r.URL.Query().Get("format")}, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrUnsupportedFormat):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, text)
}

package program

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/plotsim/plotsim/internal/auth"
)

const maxUploadSize = 10 << 20 // 10MB

// Import handles POST /api/programs/import (multipart form with a "file"
// field, optional "name" and "format"). The format defaults to the one
// implied by the file extension.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	format := r.FormValue("format")
	if format == "" {
		format, err = FormatFromFilename(header.Filename)
		if err != nil {
			handleServiceError(w, err)
			return
		}
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read file"})
		return
	}

	program, err := h.service.Create(r.Context(), userID, name, format, string(data))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, program)
}

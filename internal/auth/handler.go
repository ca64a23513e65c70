package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	maxCredentialBody = 4 << 10
	minPasswordLen    = 8
	maxDisplayNameLen = 64
)

// Handler serves account registration, login and the current-user lookup
// used by the program dashboard.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *credentials) normalize() error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Email == "" || c.Password == "" {
		return errors.New("email and password are required")
	}
	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email {
		return errors.New("email is not a valid address")
	}
	return nil
}

type signup struct {
	credentials
	DisplayName string `json:"displayName"`
}

func (s *signup) normalize() error {
	s.DisplayName = strings.TrimSpace(s.DisplayName)
	if s.DisplayName == "" {
		return errors.New("email, password, and displayName are required")
	}
	if err := s.credentials.normalize(); err != nil {
		return err
	}
	if len(s.Password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if utf8.RuneCountInString(s.DisplayName) > maxDisplayNameLen {
		return fmt.Errorf("displayName must be at most %d characters", maxDisplayNameLen)
	}
	return nil
}

type normalizer interface {
	normalize() error
}

// decodeBody reads a size-limited JSON body into dst and normalizes it,
// writing a 400 and returning false when either step fails.
func decodeBody(w http.ResponseWriter, r *http.Request, dst normalizer) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := dst.normalize(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req signup
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

var errorStatus = []struct {
	err    error
	status int
}{
	{ErrEmailTaken, http.StatusConflict},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrUserNotFound, http.StatusNotFound},
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.err.Error())
			return
		}
	}
	slog.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/plotsim/plotsim/internal/db"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := db.Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, "test-secret")
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	reg, err := svc.Register(ctx, "pen@example.com", "correct horse", "Pen")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)

	userID, err := svc.ValidateToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, userID)

	login, err := svc.Login(ctx, "pen@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, reg.User, login.User)

	_, err = svc.Login(ctx, "pen@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "pen@example.com", "another pass", "Pen 2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	svc := newTestService(t)
	other := NewService(nil, "other-secret")

	token, err := other.issueToken("user_x")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	svc := newTestService(t)
	token, err := svc.issueToken("user_abc")
	require.NoError(t, err)

	var seen string
	h := svc.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/programs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, "user_abc", seen)
}

func TestHandlerRegisterValidation(t *testing.T) {
	h := NewHandler(newTestService(t))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing fields", `{"email":"a@b.c"}`, http.StatusBadRequest},
		{"short password", `{"email":"a@b.c","password":"short","displayName":"A"}`, http.StatusBadRequest},
		{"bad email", `{"email":"not an address","password":"long enough","displayName":"A"}`, http.StatusBadRequest},
		{"blank display name", `{"email":"a@b.c","password":"long enough","displayName":"   "}`, http.StatusBadRequest},
		{"oversized body", `{"email":"a@b.c","password":"` + strings.Repeat("x", maxCredentialBody) + `","displayName":"A"}`, http.StatusBadRequest},
		{"ok", `{"email":"a@b.c","password":"long enough","displayName":"A"}`, http.StatusCreated},
		{"duplicate", `{"email":"a@b.c","password":"long enough","displayName":"A"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandlerMe(t *testing.T) {
	svc := newTestService(t)
	h := NewHandler(svc)
	reg, err := svc.Register(context.Background(), "me@example.com", "long enough", "Me")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(WithUserID(req.Context(), reg.User.ID))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, reg.User, got)
}

func TestHandlerLoginNormalizesEmail(t *testing.T) {
	h := NewHandler(newTestService(t))

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register",
		bytes.NewBufferString(`{"email":"  Plotter@Example.COM ","password":"long enough","displayName":" Plotter "}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg AuthResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reg))
	assert.Equal(t, "plotter@example.com", reg.User.Email)
	assert.Equal(t, "Plotter", reg.User.DisplayName)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"email":"PLOTTER@example.com","password":"long enough"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"email":"plotter@example.com","password":"wrong password"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

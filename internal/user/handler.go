package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/entity"
)

// Handler exposes the users table of the remote store over HTTP in the
// PostgREST shape the rest backend speaks.
type Handler struct {
	store  storage.Backend
	logger *zap.SugaredLogger
}

func NewHandler(store storage.Backend, logger *zap.SugaredLogger) *Handler {
	return &Handler{store: store, logger: logger}
}

// eqFilter reads a `column=eq.value` query filter.
func eqFilter(q url.Values, column string) (string, bool) {
	v := q.Get(column)
	if !strings.HasPrefix(v, "eq.") {
		return "", false
	}
	return strings.TrimPrefix(v, "eq."), true
}

// Find answers GET /rest/v1/users?username=eq.U&password_hash=eq.H with a
// JSON array of zero or one rows. Both filters are required so the table
// cannot be listed.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username, okU := eqFilter(q, "username")
	hash, okH := eqFilter(q, "password_hash")
	if !okU || !okH {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password_hash eq filters are required"})
		return
	}
	u, err := h.store.FindUser(r.Context(), username, hash)
	if err != nil {
		h.logger.Warnw("find user failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
		return
	}
	rows := []entity.User{}
	if u != nil {
		rows = append(rows, *u)
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// Create answers POST /rest/v1/users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req entity.User
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid user payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Username == "" || req.PasswordHash == "" || req.Role == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username, password_hash and role are required"})
		return
	}
	err := h.store.CreateUser(r.Context(), req.Username, req.PasswordHash, req.Role)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			h.writeJSON(w, http.StatusConflict, map[string]string{"code": "23505", "error": err.Error()})
			return
		}
		h.logger.Warnw("create user failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create failed"})
		return
	}
	if wantsRepresentation(r) {
		h.writeJSON(w, http.StatusCreated, []entity.User{req})
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func wantsRepresentation(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Prefer"), "return=representation")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/key-management/internal/transport"
	"github.com/frahmantamala/key-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListUsers() []User
	GetUser(id string) (User, error)
	AddUser(ctx context.Context, dto CreateUserDTO) (User, error)
	UpdateUser(ctx context.Context, id string, dto UpdateUserDTO) (User, error)
	ToggleUserActive(ctx context.Context, id string) (User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, UsersResponse{Users: h.Service.ListUsers()})
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.GetUser(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	u, err := h.Service.AddUser(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.Logger.Info("user created", "user_id", u.ID, "login", u.Login)
	h.WriteJSON(w, http.StatusCreated, u)
}

// UpdateUser handles PUT /users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var dto UpdateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	u, err := h.Service.UpdateUser(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// ToggleActive handles POST /users/{id}/toggle
func (h *Handler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.ToggleUserActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GeneratePassword handles GET /users/password
func (h *Handler) GeneratePassword(w http.ResponseWriter, r *http.Request) {
	password, err := GeneratePassword()
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, GeneratedPasswordResponse{Password: password})
}

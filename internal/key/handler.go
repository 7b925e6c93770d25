package key

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/key-management/internal/transport"
	"github.com/frahmantamala/key-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListKeys() []Key
	AddKey(ctx context.Context, dto CreateKeyDTO) (Key, error)
	DeleteKey(ctx context.Context, id string) error
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

// ListKeys handles GET /keys
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, KeysResponse{Keys: h.Service.ListKeys()})
}

// CreateKey handles POST /keys
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var dto CreateKeyDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	k, err := h.Service.AddKey(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, k)
}

// DeleteKey handles DELETE /keys/{id}
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteKey(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

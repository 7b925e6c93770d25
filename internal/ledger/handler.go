package ledger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/key"
	"github.com/frahmantamala/key-management/internal/transport"
	"github.com/frahmantamala/key-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	IssueKey(ctx context.Context, barcode string, holder Holder) (IssueResult, error)
	ReturnKey(ctx context.Context, barcode string) (key.Key, error)
	Stats() Stats
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

// IssueToSelf handles POST /keys/issue: the session user takes the key.
func (h *Handler) IssueToSelf(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	var req IssueRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	res, err := h.Service.IssueKey(r.Context(), req.Barcode, BySessionUser(userID))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// IssueByCard handles POST /keys/{barcode}/issue with a card code body.
func (h *Handler) IssueByCard(w http.ResponseWriter, r *http.Request) {
	var req CardIssueRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	res, err := h.Service.IssueKey(r.Context(), chi.URLParam(r, "barcode"), ByCardCode(req.CardCode))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// ReturnKey handles POST /keys/return
func (h *Handler) ReturnKey(w http.ResponseWriter, r *http.Request) {
	var req ReturnRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	k, err := h.Service.ReturnKey(r.Context(), req.Barcode)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, k)
}

// GetStats handles GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Service.Stats())
}

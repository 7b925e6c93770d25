package history

import (
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/transport"
	"github.com/frahmantamala/key-management/pkg/logger"
)

type ServiceAPI interface {
	QueryHistory(f Filter) iter.Seq[Record]
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

type HistoryResponse struct {
	Records []Record `json:"records"`
}

// GetHistory handles GET /history?q=&barcode=&action=&limit=
//
// Non-admin callers only ever see their own records.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	if !internal.IsAdminFromContext(r.Context()) {
		filter.Holder = internal.DisplayNameFromContext(r.Context())
		if filter.Holder == "" {
			h.WriteAppError(w, internal.ErrInvalidToken)
			return
		}
	}

	records := slices.Collect(h.Service.QueryHistory(filter))
	if records == nil {
		records = []Record{}
	}
	h.WriteJSON(w, http.StatusOK, HistoryResponse{Records: records})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Text:    q.Get("q"),
		Barcode: q.Get("barcode"),
		Holder:  q.Get("holder"),
	}

	if action := q.Get("action"); action != "" {
		f.Action = Action(action)
		if !f.Action.Valid() {
			return Filter{}, internal.NewValidationFieldError("action", "action must be one of: taken, returned", internal.ErrCodeValidationFailed)
		}
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return Filter{}, internal.NewValidationFieldError("limit", "limit must be a non-negative integer", internal.ErrCodeValidationFailed)
		}
		f.Limit = n
	}
	return f, nil
}
